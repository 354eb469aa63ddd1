// Package revocation records revoked token ids until their natural expiry.
//
// # Backends
//
//   - [RedisStore]: the production list, shared by every instance (SET ... PX).
//   - [PostgresStore]: a relational list with emulated TTL and a purge loop.
//   - [MemoryStore]: a process-local list for development and tests.
//   - [CachedStore]: decorates any backend and memoizes positive lookups.
//
// All backends report infrastructure failures wrapped with [ErrUnavailable];
// whether to fail open or closed is the caller's policy, not the store's.
//
// # What this package must NOT do
//
//   - Import tokenguard or jwt (no upward imports).
//   - Interpret token claims.
package revocation
