// Package httpapi is the reference HTTP surface of the tokenguard service.
//
// Routes:
//
//	POST /api/auth/login     {"usernameOrEmail","password"} -> token envelope
//	POST /api/auth/logout    Authorization: Bearer <token>
//	POST /api/auth/validate  {"token"} -> claims or 401
//	GET  /api/users/me       guarded; returns the admitted principal
//	GET  /healthz            revocation backend round trip
//
// Every /api route outside /api/auth passes the session guard.
package httpapi
