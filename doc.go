// Package tokenguard issues HS512 session tokens, admits them on each request
// and revokes them on logout before their natural expiry.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokenguard is the public surface. It exposes [Engine], [Builder], [Config] and value
// types ([AuthResult], [MetricsSnapshot], [SecurityReport]). Token encoding lives in
// package jwt, revocation backends in package revocation, and flow orchestration and
// audit dispatch under internal/.
//
// # Revocation policy
//
// A token is admitted only when its signature verifies, it has not expired, it carries
// a token id and that id is absent from the revocation list. When the list can't be
// read the token is rejected unless [RevocationConfig.FailOpen] is set.
//
// # Performance contract
//
// Validate is the hot path: malformed and expired tokens are rejected without a store
// round trip, and valid tokens cost exactly one (or none on a positive cache hit).
package tokenguard
