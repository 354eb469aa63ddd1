// Package jwt issues and verifies HS512 session tokens.
//
// Key material is derived once from a configured secret ([NewKeyMaterial]) and
// passed to a [Manager]. Verification never panics; it returns a tagged
// [Verification] whose [Status] the caller switches on. Timestamps keep
// millisecond precision so short lifetimes expire exactly.
package jwt
