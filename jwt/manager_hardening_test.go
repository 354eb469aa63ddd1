package jwt

import (
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, ttl time.Duration, clock *manualClock) *Manager {
	t.Helper()
	keys, err := NewKeyMaterial(strings.Repeat("k", MinHS512KeySize), nil)
	if err != nil {
		t.Fatalf("key material: %v", err)
	}
	m, err := NewManager(Config{TTL: ttl, Keys: keys, Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &manualClock{now: time.UnixMilli(1_760_000_000_123)}
	m := newTestManager(t, time.Hour, clock)

	issued, err := m.Issue(Principal{Subject: "42", Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.TokenType != "Bearer" {
		t.Fatalf("unexpected token type %q", issued.TokenType)
	}
	if !issued.ExpiresAt.Equal(issued.IssuedAt.Add(time.Hour)) {
		t.Fatalf("exp must be iat+ttl, got iat=%v exp=%v", issued.IssuedAt, issued.ExpiresAt)
	}

	v := m.Verify(issued.Token)
	if v.Status != StatusValid || !v.Valid() {
		t.Fatalf("expected valid token, got %s (%v)", v.Status, v.Err)
	}
	if v.Claims.Subject != "42" || v.Claims.ID != issued.TokenID {
		t.Fatalf("claims mismatch: %+v", v.Claims)
	}
	if v.Claims.Username != "alice" || v.Claims.Email != "alice@example.com" {
		t.Fatalf("display claims lost: %+v", v.Claims)
	}
	if !v.Claims.IssuedAt.Equal(issued.IssuedAt) {
		t.Fatalf("iat lost millisecond precision: %v vs %v", v.Claims.IssuedAt.Time, issued.IssuedAt)
	}
}

func TestIssueRejectsEmptySubject(t *testing.T) {
	m := newTestManager(t, time.Minute, &manualClock{now: time.Now()})
	if _, err := m.Issue(Principal{Subject: "  "}); err != ErrInvalidSubject {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}

func TestIssueDrawsFreshTokenIDs(t *testing.T) {
	m := newTestManager(t, time.Minute, &manualClock{now: time.Now()})
	a, err := m.Issue(Principal{Subject: "1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, err := m.Issue(Principal{Subject: "1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a.TokenID == b.TokenID || a.Token == b.Token {
		t.Fatal("expected distinct token ids for separate issuances")
	}
}

func TestVerifyExpiryAtMillisecondPrecision(t *testing.T) {
	clock := &manualClock{now: time.UnixMilli(1_760_000_000_000)}
	m := newTestManager(t, 1000*time.Millisecond, clock)

	issued, err := m.Issue(Principal{Subject: "42"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(999 * time.Millisecond)
	if v := m.Verify(issued.Token); v.Status != StatusValid {
		t.Fatalf("expected valid 1ms before expiry, got %s", v.Status)
	}

	clock.Advance(time.Millisecond)
	v := m.Verify(issued.Token)
	if v.Status != StatusExpired {
		t.Fatalf("expected expired at exp, got %s", v.Status)
	}
	if v.Claims == nil || v.Claims.Subject != "42" {
		t.Fatal("expired verification should still carry authentic claims")
	}

	clock.Advance(time.Hour)
	if v := m.Verify(issued.Token); v.Status != StatusExpired {
		t.Fatalf("expiry must be monotonic, got %s", v.Status)
	}
}

func TestVerifyTamperedTokenIsMalformed(t *testing.T) {
	m := newTestManager(t, time.Minute, &manualClock{now: time.Now()})
	issued, err := m.Issue(Principal{Subject: "42"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(issued.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected compact JWS, got %d parts", len(parts))
	}

	flip := func(s string, i int) string {
		b := []byte(s)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		return string(b)
	}

	cases := map[string]string{
		"header":    flip(parts[0], 3) + "." + parts[1] + "." + parts[2],
		"payload":   parts[0] + "." + flip(parts[1], 5) + "." + parts[2],
		"truncated": parts[0] + "." + parts[1],
		"garbage":   "not.a.jwt",
		"empty":     "",
	}
	for name, token := range cases {
		if v := m.Verify(token); v.Status != StatusMalformed {
			t.Fatalf("%s: expected malformed, got %s", name, v.Status)
		}
	}

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	sig := []byte(parts[2])
	for i := range sig {
		orig := sig[i]
		for j := 0; j < len(alphabet); j++ {
			if alphabet[j] == orig {
				continue
			}
			sig[i] = alphabet[j]
			token := parts[0] + "." + parts[1] + "." + string(sig)
			if v := m.Verify(token); v.Status != StatusMalformed {
				t.Fatalf("signature pos %d %q->%q: expected malformed, got %s", i, orig, alphabet[j], v.Status)
			}
		}
		sig[i] = orig
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, time.Minute, &manualClock{now: time.Now()})

	claims := &Claims{Subject: "42", ID: "jti-1", ExpiresAt: NewTimestamp(time.Now().Add(time.Minute))}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString(m.config.Keys.Bytes())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if v := m.Verify(token); v.Status != StatusMalformed {
		t.Fatalf("expected HS256 token to be rejected, got %s", v.Status)
	}

	none := "eyJhbGciOiJub25lIn0.eyJzdWIiOiI0MiIsImp0aSI6ImEiLCJleHAiOjk5OTk5OTk5OTl9."
	if v := m.Verify(none); v.Status != StatusMalformed {
		t.Fatalf("expected alg=none to be rejected, got %s", v.Status)
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	m := newTestManager(t, time.Minute, clock)

	otherKeys, err := NewKeyMaterial("another-secret", nil)
	if err != nil {
		t.Fatalf("key material: %v", err)
	}
	other, err := NewManager(Config{TTL: time.Minute, Keys: otherKeys, Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	issued, err := other.Issue(Principal{Subject: "42"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if v := m.Verify(issued.Token); v.Status != StatusMalformed {
		t.Fatalf("expected foreign-key token to be malformed, got %s", v.Status)
	}
}

func TestVerifyMissingClaims(t *testing.T) {
	clock := &manualClock{now: time.UnixMilli(1_760_000_000_000)}
	m := newTestManager(t, time.Minute, clock)
	exp := NewTimestamp(clock.now.Add(time.Minute))

	noJTI, err := m.Sign(&Claims{Subject: "42", IssuedAt: NewTimestamp(clock.now), ExpiresAt: exp})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	v := m.Verify(noJTI)
	if v.Status != StatusMissingTokenID {
		t.Fatalf("expected missing token id, got %s", v.Status)
	}
	if v.Claims == nil || v.Claims.Subject != "42" {
		t.Fatal("missing-jti verification should carry the subject")
	}

	noSub, err := m.Sign(&Claims{ID: "jti-1", IssuedAt: NewTimestamp(clock.now), ExpiresAt: exp})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if v := m.Verify(noSub); v.Status != StatusMalformed {
		t.Fatalf("expected empty subject to be malformed, got %s", v.Status)
	}

	noExp, err := m.Sign(&Claims{Subject: "42", ID: "jti-1", IssuedAt: NewTimestamp(clock.now)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if v := m.Verify(noExp); v.Status != StatusMalformed {
		t.Fatalf("expected token without exp to be malformed, got %s", v.Status)
	}
}

func TestVerifyIssuerPinning(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	keys, err := NewKeyMaterial(strings.Repeat("k", MinHS512KeySize), nil)
	if err != nil {
		t.Fatalf("key material: %v", err)
	}
	pinned, err := NewManager(Config{TTL: time.Minute, Keys: keys, Issuer: "tokenguard", Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	other, err := NewManager(Config{TTL: time.Minute, Keys: keys, Issuer: "someone-else", Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	good, _ := pinned.Issue(Principal{Subject: "42"})
	if v := pinned.Verify(good.Token); v.Status != StatusValid {
		t.Fatalf("expected own issuer to pass, got %s", v.Status)
	}
	bad, _ := other.Issue(Principal{Subject: "42"})
	if v := pinned.Verify(bad.Token); v.Status != StatusMalformed {
		t.Fatalf("expected wrong issuer to fail, got %s", v.Status)
	}
}

func TestSignIsDeterministic(t *testing.T) {
	m := newTestManager(t, time.Minute, &manualClock{now: time.Now()})
	claims := &Claims{
		Subject:   "42",
		ID:        "fixed",
		IssuedAt:  NewTimestamp(time.UnixMilli(1_000)),
		ExpiresAt: NewTimestamp(time.UnixMilli(2_500)),
	}
	a, err := m.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := m.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if a != b {
		t.Fatal("identical claims and key must produce identical tokens")
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	keys, _ := NewKeyMaterial("secret", nil)
	if _, err := NewManager(Config{TTL: 0, Keys: keys}); err == nil {
		t.Fatal("expected zero TTL to fail")
	}
	if _, err := NewManager(Config{TTL: time.Minute}); err != ErrMissingSigningKey {
		t.Fatalf("expected ErrMissingSigningKey, got %v", err)
	}
	if _, err := NewManager(Config{TTL: time.Minute, Keys: keys, Leeway: -time.Second}); err == nil {
		t.Fatal("expected negative leeway to fail")
	}
}
