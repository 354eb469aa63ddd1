package tokenguard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/revocation"
)

func TestEngineScenarioTokenExpiresAfterTTL(t *testing.T) {
	cfg := testConfig()
	cfg.Token.TTL = 1000 * time.Millisecond
	e := buildTestEngine(t, cfg)
	ctx := context.Background()

	issued, err := e.Issue(ctx, Principal{ID: "42"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.TokenType != "Bearer" || issued.ExpiresIn != time.Second {
		t.Fatalf("unexpected issued token %+v", issued)
	}

	parts := strings.Split(issued.Token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var wire struct {
		IssuedAt  jwt.Timestamp `json:"iat"`
		ExpiresAt jwt.Timestamp `json:"exp"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got := wire.ExpiresAt.Sub(wire.IssuedAt.Time); got != 1000*time.Millisecond {
		t.Fatalf("encoded exp-iat = %s, want 1000ms", got)
	}
	v := e.Verify(issued.Token)
	if v.Status != jwt.StatusValid {
		t.Fatalf("verify: %s", v.Status)
	}
	if got := v.Claims.ExpiresAt.Sub(v.Claims.IssuedAt.Time); got != 1000*time.Millisecond {
		t.Fatalf("decoded exp-iat = %s, want 1000ms", got)
	}

	res, err := e.Validate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
	if res.Subject != "42" || res.TokenID != issued.TokenID {
		t.Fatalf("unexpected principal %+v", res)
	}

	e.clock.Advance(1100 * time.Millisecond)

	_, err = e.Validate(ctx, issued.Token)
	if !errors.Is(err, ErrTokenExpired) || !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired rejection, got %v", err)
	}
	if got := RejectionMessage(err); got != "Token has expired" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestEngineScenarioLoggedOutTokenIsBlacklisted(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	issued, err := e.Issue(ctx, Principal{ID: "7", Username: "seven"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := e.Validate(ctx, issued.Token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	if err := e.Logout(ctx, issued.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	key := revocation.DefaultKeyPrefix + issued.TokenID
	if !e.mr.Exists(key) {
		t.Fatalf("expected %s in redis", key)
	}
	if ttl := e.mr.TTL(key); ttl != 24*time.Hour {
		t.Fatalf("expected revocation ttl to match remaining lifetime, got %s", ttl)
	}

	_, err = e.Validate(ctx, issued.Token)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked rejection, got %v", err)
	}
	if got := RejectionMessage(err); got != "Token has been blacklisted and cannot be used." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestEngineRevocationExpiresWithToken(t *testing.T) {
	cfg := testConfig()
	cfg.Token.TTL = 10 * time.Second
	e := buildTestEngine(t, cfg)
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	e.clock.Advance(4 * time.Second)
	if err := e.Logout(ctx, issued.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	key := revocation.DefaultKeyPrefix + issued.TokenID
	if ttl := e.mr.TTL(key); ttl != 6*time.Second {
		t.Fatalf("expected 6s ttl, got %s", ttl)
	}

	e.mr.FastForward(6 * time.Second)
	if e.mr.Exists(key) {
		t.Fatal("revocation entry outlived the token")
	}
}

func TestEngineLogoutInsideLeewayWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Token.TTL = 10 * time.Second
	cfg.Token.Leeway = 30 * time.Second
	e := buildTestEngine(t, cfg)
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	e.clock.Advance(12 * time.Second)

	if _, err := e.Validate(ctx, issued.Token); err != nil {
		t.Fatalf("token inside leeway rejected: %v", err)
	}
	if err := e.Logout(ctx, issued.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	key := revocation.DefaultKeyPrefix + issued.TokenID
	if ttl := e.mr.TTL(key); ttl != 28*time.Second {
		t.Fatalf("expected revocation to last until exp+leeway (28s), got %s", ttl)
	}
	if _, err := e.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked after logout, got %v", err)
	}

	e.clock.Advance(27 * time.Second)
	e.mr.FastForward(27 * time.Second)
	if _, err := e.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked until leeway ends, got %v", err)
	}

	e.clock.Advance(2 * time.Second)
	e.mr.FastForward(2 * time.Second)
	if _, err := e.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired once leeway ends, got %v", err)
	}
}

func TestEngineLogoutIdempotent(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	for i := 0; i < 3; i++ {
		if err := e.Logout(ctx, issued.Token); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
	}
	if got := e.MetricsSnapshot().Counters[MetricLogout]; got != 3 {
		t.Fatalf("expected 3 logouts, got %d", got)
	}
	if _, err := e.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
}

func TestEngineLogoutExpiredTokenIsNoop(t *testing.T) {
	cfg := testConfig()
	cfg.Token.TTL = time.Second
	e := buildTestEngine(t, cfg)
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	e.clock.Advance(2 * time.Second)

	if err := e.Logout(ctx, issued.Token); err != nil {
		t.Fatalf("expected expired logout to succeed, got %v", err)
	}
	if e.mr.Exists(revocation.DefaultKeyPrefix + issued.TokenID) {
		t.Fatal("expired token should not be written to the revocation list")
	}
	if got := e.MetricsSnapshot().Counters[MetricLogoutSkipped]; got != 1 {
		t.Fatalf("expected 1 skipped logout, got %d", got)
	}
}

func TestEngineLogoutRejectsUnusableToken(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	if err := e.Logout(ctx, "not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected malformed rejection, got %v", err)
	}
	if err := e.Logout(ctx, ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token rejection, got %v", err)
	}
}

func TestEngineLogoutSwallowsStoreFailure(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	e.mr.SetError("ERR backend down")

	if err := e.Logout(ctx, issued.Token); err != nil {
		t.Fatalf("expected store failure to be swallowed, got %v", err)
	}
	if got := e.MetricsSnapshot().Counters[MetricLogoutStoreFailure]; got != 1 {
		t.Fatalf("expected 1 store failure, got %d", got)
	}
}

func TestEngineValidateFailsClosedOnStoreError(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	e.mr.SetError("ERR backend down")

	_, err := e.Validate(ctx, issued.Token)
	if !errors.Is(err, ErrRevocationUnavailable) || !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unavailable rejection, got %v", err)
	}
	if !errors.Is(err, revocation.ErrUnavailable) {
		t.Fatalf("expected store cause to be wrapped, got %v", err)
	}
	if got := RejectionMessage(err); got != MessageUnavailable {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestEngineValidateFailOpenAdmitsOnStoreError(t *testing.T) {
	cfg := testConfig()
	cfg.Revocation.FailOpen = true
	e := buildTestEngine(t, cfg)
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	e.mr.SetError("ERR backend down")

	res, err := e.Validate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("expected fail-open admission, got %v", err)
	}
	if res.Subject != "7" {
		t.Fatalf("unexpected subject %q", res.Subject)
	}
	if got := e.MetricsSnapshot().Counters[MetricValidateFailOpen]; got != 1 {
		t.Fatalf("expected 1 fail-open admission, got %d", got)
	}
}

func TestEngineValidateClassifiesFailures(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	noID, err := e.jwtManager.Sign(&jwt.Claims{
		Subject:   "7",
		IssuedAt:  jwt.NewTimestamp(e.clock.Now()),
		ExpiresAt: jwt.NewTimestamp(e.clock.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
		msg   string
	}{
		{name: "empty", token: "", want: ErrMissingToken, msg: MessageMissingToken},
		{name: "garbage", token: "abc.def.ghi", want: ErrTokenMalformed, msg: MessageMalformed},
		{name: "missing jti", token: noID, want: ErrTokenMissingID, msg: MessageMissingID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Validate(ctx, tc.token)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := RejectionMessage(err); got != tc.msg {
				t.Fatalf("expected message %q, got %q", tc.msg, got)
			}
		})
	}
}

func TestEngineAuthenticateHeader(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7", Email: "seven@example.com"})

	res, err := e.Authenticate(ctx, "bearer "+issued.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.Email != "seven@example.com" {
		t.Fatalf("unexpected email %q", res.Email)
	}

	for _, h := range []string{"", "Basic abc", "Bearer ", issued.Token} {
		if _, err := e.Authenticate(ctx, h); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("header %q: expected missing token, got %v", h, err)
		}
	}
}

func TestEngineIssueRejectsEmptySubject(t *testing.T) {
	e := buildTestEngine(t, testConfig())

	if _, err := e.Issue(context.Background(), Principal{ID: "  "}); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
	if got := e.MetricsSnapshot().Counters[MetricTokenIssueFailure]; got != 1 {
		t.Fatalf("expected 1 issue failure, got %d", got)
	}
}

func TestEngineCachedPositiveSurvivesOutage(t *testing.T) {
	cfg := testConfig()
	cfg.Revocation.CacheSize = 16
	e := buildTestEngine(t, cfg)
	ctx := context.Background()

	issued, _ := e.Issue(ctx, Principal{ID: "7"})
	if err := e.Logout(ctx, issued.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	e.mr.SetError("ERR backend down")
	if _, err := e.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected cached revocation, got %v", err)
	}
}

func TestEngineWithMemoryStore(t *testing.T) {
	clock := newManualClock()
	cfg := testConfig()
	engine, err := New().
		WithConfig(cfg).
		WithRevocationStore(revocation.NewMemoryStore(clock.Now)).
		WithClock(clock.Now).
		WithLogger(discardLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	issued, _ := engine.Issue(ctx, Principal{ID: "7"})
	if err := engine.Logout(ctx, issued.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := engine.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
	if d, err := engine.Ping(ctx); err != nil || d != 0 {
		t.Fatalf("memory backend ping: %s %v", d, err)
	}
	if got := engine.SecurityReport().RevocationBackend; got != "memory" {
		t.Fatalf("unexpected backend %q", got)
	}
}

type stubDirectory struct {
	users map[string]string
}

func (d stubDirectory) Authenticate(_ context.Context, identifier, password string) (Principal, error) {
	if pw, ok := d.users[identifier]; ok && pw == password {
		return Principal{ID: "7", Username: identifier}, nil
	}
	return Principal{}, ErrInvalidCredentials
}

func TestEngineLogin(t *testing.T) {
	e := buildTestEngine(t, testConfig(), func(b *Builder) {
		b.WithCredentials(stubDirectory{users: map[string]string{"seven": "hunter2"}})
	})
	ctx := context.Background()

	issued, err := e.Login(ctx, "seven", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	res, err := e.Validate(ctx, issued.Token)
	if err != nil || res.Username != "seven" {
		t.Fatalf("unexpected validate result %+v %v", res, err)
	}

	if _, err := e.Login(ctx, "seven", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestEngineLoginWithoutDirectory(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	if _, err := e.Login(context.Background(), "seven", "hunter2"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestEnginePing(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := e.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	e.mr.Close()
	if _, err := e.Ping(ctx); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestEngineClosedIsNotReady(t *testing.T) {
	e := buildTestEngine(t, testConfig())
	e.Close()

	if _, err := e.Issue(context.Background(), Principal{ID: "7"}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	var zero *Engine
	if _, err := zero.Validate(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady on nil engine, got %v", err)
	}
}

func TestBuilderRequiresBackendAndSecret(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without revocation backend")
	}

	_, rdb := newTestRedis(t)
	if _, err := New().WithRedis(rdb).Build(); !errors.Is(err, jwt.ErrMissingSigningKey) {
		t.Fatalf("expected ErrMissingSigningKey, got %v", err)
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithLogger(discardLogger())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected reused builder to fail")
	}
}

func TestSecurityReport(t *testing.T) {
	cfg := testConfig()
	cfg.Token.Secret = "short"
	cfg.Token.Issuer = "tokenguard"
	cfg.Revocation.FailOpen = true
	cfg.Revocation.CacheSize = 4
	e := buildTestEngine(t, cfg)

	r := e.SecurityReport()
	if r.SigningAlgorithm != "HS512" || r.KeyBytes != 64 || !r.KeyPadded {
		t.Fatalf("unexpected key posture %+v", r)
	}
	if r.RevocationBackend != "redis" || !r.RevocationFailOpen || !r.PositiveCache || !r.IssuerPinned {
		t.Fatalf("unexpected revocation posture %+v", r)
	}
	if r.AuditEnabled {
		t.Fatal("audit is disabled in test config")
	}
}
