package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/tokenguard"
)

// Authenticator admits or rejects an Authorization header value.
// *tokenguard.Engine implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*tokenguard.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the principal admitted by Guard.
func AuthResultFromContext(ctx context.Context) (*tokenguard.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tokenguard.AuthResult)
	return res, ok && res != nil
}

// SubjectFromContext returns the admitted subject id, or "" and false.
func SubjectFromContext(ctx context.Context) (string, bool) {
	res, ok := AuthResultFromContext(ctx)
	if !ok {
		return "", false
	}
	return res.Subject, true
}

// WithAuthResult attaches res to ctx the same way Guard does.
func WithAuthResult(ctx context.Context, res *tokenguard.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Rejection is the JSON body written for a refused request.
type Rejection struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Guard admits requests carrying a valid, unrevoked bearer token and attaches
// the principal to the request context. Everything else gets a 401 with a
// single reason string.
func Guard(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				WriteRejection(w, tokenguard.ErrEngineNotReady)
				return
			}

			res, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				WriteRejection(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// WriteRejection writes the 401 body for err.
func WriteRejection(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(Rejection{
		Code:    http.StatusUnauthorized,
		Message: tokenguard.RejectionMessage(err),
	})
}
