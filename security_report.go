package tokenguard

import "github.com/MrEthical07/tokenguard/jwt"

// SecurityReport describes the effective token and revocation posture.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm:   "HS512",
		KeyBytes:           e.keys.Len(),
		KeyPadded:          e.keys.Padded(),
		TokenTTL:           e.config.Token.TTL,
		IssuerPinned:       e.config.Token.Issuer != "",
		Leeway:             e.config.Token.Leeway,
		RevocationBackend:  e.backend,
		RevocationFailOpen: e.config.Revocation.FailOpen,
		RevocationTimeout:  e.config.Revocation.Timeout,
		PositiveCache:      e.config.Revocation.CacheSize > 0,
		AuditEnabled:       e.audit != nil,
		MetricsEnabled:     e.metrics.Enabled(),
	}
}

// Verify exposes the raw verification result without consulting the
// revocation list. Intended for diagnostics; request paths use Validate.
func (e *Engine) Verify(token string) jwt.Verification {
	if !e.ready() {
		return jwt.Verification{Status: jwt.StatusMalformed, Err: ErrEngineNotReady}
	}
	return e.jwtManager.Verify(token)
}
