package flows

import (
	"context"

	"github.com/MrEthical07/tokenguard/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMalformed
	ValidateFailureExpired
	ValidateFailureMissingTokenID
	ValidateFailureRevoked
	ValidateFailureStoreUnavailable
)

// ValidateResult returns either admitted claims or a classified failure.
//
// FailOpen is set when the revocation store failed but policy admitted the
// token anyway; Err then carries the store error for logging.
type ValidateResult struct {
	Failure  ValidateFailureKind
	Err      error
	Claims   *jwt.Claims
	FailOpen bool
}

type RevocationReader interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ValidateDeps captures guard dependencies.
type ValidateDeps struct {
	Verify      func(string) jwt.Verification
	Revocations RevocationReader
	FailOpen    bool
}

// RunValidate walks a presented token through verification and the revocation check.
//
// The store is consulted only for tokens whose signature and expiry already
// passed, so malformed or expired traffic never reaches Redis.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	v := deps.Verify(tokenStr)
	switch v.Status {
	case jwt.StatusValid:
	case jwt.StatusExpired:
		return ValidateResult{Failure: ValidateFailureExpired, Err: v.Err}
	case jwt.StatusMissingTokenID:
		return ValidateResult{Failure: ValidateFailureMissingTokenID, Err: v.Err}
	default:
		return ValidateResult{Failure: ValidateFailureMalformed, Err: v.Err}
	}

	revoked, err := deps.Revocations.IsRevoked(ctx, v.Claims.ID)
	if err != nil {
		if deps.FailOpen {
			return ValidateResult{Claims: v.Claims, Err: err, FailOpen: true}
		}
		return ValidateResult{Failure: ValidateFailureStoreUnavailable, Err: err}
	}
	if revoked {
		return ValidateResult{Failure: ValidateFailureRevoked}
	}

	return ValidateResult{Claims: v.Claims}
}
