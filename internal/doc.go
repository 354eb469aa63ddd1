// Package internal contains helpers private to tokenguard.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for guard validation and logout
//   - credentials: argon2id-backed credential directory for login
//   - config: service configuration loading (YAML, .env, environment)
//   - httpapi: reference HTTP surface wired on chi
//
// Nothing here appears in the public tokenguard API.
package internal
