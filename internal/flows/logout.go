package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenguard/jwt"
)

// LogoutFailureKind classifies logout outcomes for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureMalformed
	LogoutFailureMissingTokenID
	LogoutFailureStoreUnavailable
)

type RevocationWriter interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Verify      func(string) jwt.Verification
	Now         func() time.Time
	Revocations RevocationWriter
	// Leeway is the skew Verify tolerates past exp. Revocations must outlive it.
	Leeway time.Duration
}

// LogoutResult describes what logout did. Skipped means the token had already
// expired, so there was nothing left to revoke.
type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error
	Subject string
	TokenID string
	TTL     time.Duration
	Skipped bool
}

// RunLogout revokes the presented token for as long as Verify would still
// accept it: until exp plus leeway.
func RunLogout(ctx context.Context, tokenStr string, deps LogoutDeps) LogoutResult {
	v := deps.Verify(tokenStr)
	switch v.Status {
	case jwt.StatusValid:
	case jwt.StatusExpired:
		return LogoutResult{Subject: v.Claims.Subject, TokenID: v.Claims.ID, Skipped: true}
	case jwt.StatusMissingTokenID:
		return LogoutResult{Failure: LogoutFailureMissingTokenID, Err: v.Err, Subject: v.Claims.Subject}
	default:
		return LogoutResult{Failure: LogoutFailureMalformed, Err: v.Err}
	}

	res := LogoutResult{
		Subject: v.Claims.Subject,
		TokenID: v.Claims.ID,
		TTL:     v.Claims.Remaining(deps.Now()) + deps.Leeway,
	}
	if res.TTL <= 0 {
		// Expired between verification and now.
		res.Skipped = true
		return res
	}

	if err := deps.Revocations.Revoke(ctx, res.TokenID, res.TTL); err != nil {
		res.Failure = LogoutFailureStoreUnavailable
		res.Err = err
	}
	return res
}
