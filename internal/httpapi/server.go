package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	msgLoginSuccess       = "Login successful"
	msgLogoutSuccess      = "Logout successful"
	msgTokenValid         = "Token is valid"
	msgInvalidCredentials = "Invalid username or password"
	msgLogoutNoHeader     = "Authorization header is missing or invalid."
	msgBadRequest         = "Invalid request body"
	msgUnavailable        = "Service unavailable"
)

const maxBodyBytes = 1 << 16

// Engine is the subset of *tokenguard.Engine the API needs.
type Engine interface {
	middleware.Authenticator
	Login(ctx context.Context, identifier, password string) (*tokenguard.IssuedToken, error)
	Validate(ctx context.Context, token string) (*tokenguard.AuthResult, error)
	Logout(ctx context.Context, token string) error
	Ping(ctx context.Context) (time.Duration, error)
}

// Options configures NewRouter.
type Options struct {
	Engine  Engine
	Logger  logrus.FieldLogger
	Metrics http.Handler
	// MetricsPath defaults to /metrics when Metrics is set.
	MetricsPath string
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers; otherwise any
	// client can choose the IP recorded in audit events.
	TrustProxyHeaders bool
}

type server struct {
	engine   Engine
	logger   logrus.FieldLogger
	validate *validator.Validate
}

// NewRouter builds the reference HTTP surface: login, logout and validate
// under /api/auth, the guarded /api/users/me, /healthz and metrics.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &server{
		engine:   opts.Engine,
		logger:   logger,
		validate: validator.New(),
	}

	r := chi.NewRouter()
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(requestContext)
	r.Use(accessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewChain(middleware.GuardStage(opts.Engine)).Handler)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Post("/validate", s.validateToken)
	})
	r.Get("/api/users/me", s.me)
	r.Get("/healthz", s.health)

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, opts.Metrics)
	}

	return r
}

// requestContext stamps a request id and the client IP for audit records.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := tokenguard.WithRequestID(r.Context(), id)
		ctx = tokenguard.WithClientIP(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"client_ip":   r.RemoteAddr,
				"request_id":  tokenguard.RequestIDFromContext(r.Context()),
			}).Debug("request")
		})
	}
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token       string `json:"token"`
	TokenType   string `json:"token_type"`
	ExpiresInMs int64  `json:"expires_in_ms"`
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	issued, err := s.engine.Login(r.Context(), req.UsernameOrEmail, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, tokenguard.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, msgInvalidCredentials, nil)
		return
	default:
		s.logger.WithError(err).WithField("request_id", tokenguard.RequestIDFromContext(r.Context())).Error("login failed")
		writeJSON(w, http.StatusServiceUnavailable, msgUnavailable, nil)
		return
	}

	writeJSON(w, http.StatusOK, msgLoginSuccess, loginResponse{
		Token:       issued.Token,
		TokenType:   issued.TokenType,
		ExpiresInMs: issued.ExpiresIn.Milliseconds(),
	})
}

// logout succeeds whenever a bearer header is present. Unusable tokens and
// revocation failures are logged, never surfaced.
func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenguard.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, msgLogoutNoHeader, nil)
		return
	}

	if err := s.engine.Logout(r.Context(), token); err != nil {
		if errors.Is(err, tokenguard.ErrEngineNotReady) {
			writeJSON(w, http.StatusServiceUnavailable, msgUnavailable, nil)
			return
		}
		s.logger.WithError(err).WithField("request_id", tokenguard.RequestIDFromContext(r.Context())).Debug("logout with unusable token")
	}

	writeJSON(w, http.StatusOK, msgLogoutSuccess, nil)
}

type validateRequest struct {
	Token string `json:"token" validate:"required"`
}

type claimsResponse struct {
	Subject   string `json:"sub"`
	TokenID   string `json:"jti"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (s *server) validateToken(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.Validate(r.Context(), req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, tokenguard.RejectionMessage(err), nil)
		return
	}

	writeJSON(w, http.StatusOK, msgTokenValid, claimsResponse{
		Subject:   res.Subject,
		TokenID:   res.TokenID,
		Username:  res.Username,
		Email:     res.Email,
		IssuedAt:  res.IssuedAt.Unix(),
		ExpiresAt: res.ExpiresAt.Unix(),
	})
}

type meResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		middleware.WriteRejection(w, tokenguard.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, "OK", meResponse{
		ID:        res.Subject,
		Username:  res.Username,
		Email:     res.Email,
		ExpiresAt: res.ExpiresAt,
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	latency, err := s.engine.Ping(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, msgUnavailable, nil)
		return
	}
	writeJSON(w, http.StatusOK, "OK", map[string]any{
		"revocation_latency_ms": float64(latency.Microseconds()) / 1000,
	})
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, msgBadRequest, nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, msgBadRequest, nil)
		return false
	}
	return true
}
