package tokenguard

import "strings"

const bearerPrefix = "Bearer "

// BearerToken extracts the credential from an Authorization header value.
//
// The scheme is matched case-insensitively; a missing scheme, another scheme
// or an empty credential yields ok == false.
func BearerToken(header string) (token string, ok bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token = strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
