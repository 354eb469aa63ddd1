package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/password"
	"github.com/sirupsen/logrus"
)

// User is one configured account. PasswordHash is PHC-encoded argon2id.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
}

// Directory is a fixed, in-memory tokenguard.CredentialDirectory.
//
// Usernames and emails are matched case-insensitively. Lookups of unknown
// identifiers still run one argon2 verification so response time does not
// reveal which accounts exist.
type Directory struct {
	hasher *password.Argon2
	byID   map[string]*User
	dummy  string
}

// NewDirectory indexes users by lowercase username and email. Hashes weaker
// than hasher's parameters are accepted with a warning on logger.
func NewDirectory(hasher *password.Argon2, users []User, logger logrus.FieldLogger) (*Directory, error) {
	if hasher == nil {
		return nil, errors.New("password hasher required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	d := &Directory{
		hasher: hasher,
		byID:   make(map[string]*User, len(users)*2),
	}

	for i := range users {
		u := users[i]
		if strings.TrimSpace(u.ID) == "" {
			return nil, fmt.Errorf("user %q: id is required", u.Username)
		}
		upgrade, err := hasher.NeedsUpgrade(u.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		if upgrade {
			logger.WithField("user_id", u.ID).Warn("password hash uses weaker argon2 parameters than configured; re-hash it")
		}

		for _, key := range []string{u.Username, u.Email} {
			key = normalize(key)
			if key == "" {
				continue
			}
			if _, dup := d.byID[key]; dup {
				return nil, fmt.Errorf("duplicate identifier %q", key)
			}
			d.byID[key] = &u
		}
	}

	dummy, err := hasher.Hash("timing-equalization-only")
	if err != nil {
		return nil, err
	}
	d.dummy = dummy

	return d, nil
}

// Authenticate implements tokenguard.CredentialDirectory.
func (d *Directory) Authenticate(ctx context.Context, identifier, pw string) (tokenguard.Principal, error) {
	if err := ctx.Err(); err != nil {
		return tokenguard.Principal{}, err
	}

	u, ok := d.byID[normalize(identifier)]
	if !ok {
		_, _ = d.hasher.Verify(pw, d.dummy)
		return tokenguard.Principal{}, tokenguard.ErrInvalidCredentials
	}

	match, err := d.hasher.Verify(pw, u.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return tokenguard.Principal{}, tokenguard.ErrInvalidCredentials
		}
		return tokenguard.Principal{}, err
	}
	if !match {
		return tokenguard.Principal{}, tokenguard.ErrInvalidCredentials
	}

	return tokenguard.Principal{ID: u.ID, Username: u.Username, Email: u.Email}, nil
}

// Len reports the number of distinct identifiers indexed.
func (d *Directory) Len() int {
	return len(d.byID)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
