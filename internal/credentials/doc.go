// Package credentials provides the configured-user directory behind the reference
// login endpoint.
package credentials
