// Package middleware adapts tokenguard.Engine to net/http.
//
// # Guards
//
//   - [Guard] reads the Authorization header, calls Engine.Authenticate and injects the
//     admitted principal into the request context, or writes
//     {"code":401,"message":...,"data":null}.
//   - [Chain] composes named [Stage]s, each scoped by include and exclude path patterns.
//     [GuardStage] is the default registration (include /api/**, exclude /api/auth/**).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself; all decisions are delegated to the Engine.
package middleware
