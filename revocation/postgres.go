package revocation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

// DefaultTable is the Postgres table holding revocation rows.
const DefaultTable = "revoked_tokens"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// DB is the subset of pgx used by PostgresStore. *pgxpool.Pool and *pgx.Conn satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresOptions configures a PostgresStore.
type PostgresOptions struct {
	Table   string
	Timeout time.Duration
	Now     func() time.Time
}

// PostgresStore keeps revocations as (jti, expires_at) rows.
//
// Postgres has no key TTL, so reads filter on expires_at and Purge deletes
// rows whose deadline has passed.
type PostgresStore struct {
	db      DB
	table   string
	timeout time.Duration
	now     func() time.Time
}

// NewPostgresStore validates opts and returns a store on db.
func NewPostgresStore(db DB, opts PostgresOptions) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres revocation store requires a connection")
	}
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if !tableNamePattern.MatchString(opts.Table) {
		return nil, fmt.Errorf("invalid revocation table name %q", opts.Table)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PostgresStore{
		db:      db,
		table:   opts.Table,
		timeout: opts.Timeout,
		now:     opts.Now,
	}, nil
}

// EnsureSchema creates the revocation table and its expiry index if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			jti        TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %[1]s_expires_at_idx ON %[1]s (expires_at);
	`, s.table)
	if _, err := s.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE jti = $1 AND expires_at > $2)`, s.table)

	var revoked bool
	if err := s.db.QueryRow(ctx, q, tokenID, s.now().UTC()).Scan(&revoked); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return revoked, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	q := fmt.Sprintf(`
		INSERT INTO %s (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`, s.table)
	if _, err := s.db.Exec(ctx, q, tokenID, s.now().Add(ttl).UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Purge deletes rows whose expiry has passed and returns how many were removed.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	q := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, s.table)
	tag, err := s.db.Exec(ctx, q, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// RunPurger calls Purge every interval until ctx is cancelled.
func (s *PostgresStore) RunPurger(ctx context.Context, interval time.Duration, logger logrus.FieldLogger) {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				logger.WithError(err).Warn("revocation purge failed")
				continue
			}
			if n > 0 {
				logger.WithField("rows", n).Debug("purged expired revocations")
			}
		}
	}
}

// Ping runs a trivial query to check connectivity.
func (s *PostgresStore) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
