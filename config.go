package tokenguard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/revocation"
)

// Config is the complete Engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Token      TokenConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls issuance and verification.
//
// Secret is decoded as standard base64 when possible, otherwise used as raw
// bytes, and zero-padded to 64 bytes when shorter.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig controls the revocation list client and guard policy.
type RevocationConfig struct {
	KeyPrefix string
	Timeout   time.Duration

	// FailOpen admits tokens when the list can't be read. Off by default:
	// an outage then rejects every request instead of honouring revoked tokens.
	FailOpen bool

	// CacheSize > 0 enables the in-process positive cache.
	CacheSize int
	CacheTTL  time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles counters and the validate latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Token.Secret is empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL: 24 * time.Hour,
		},
		Revocation: RevocationConfig{
			KeyPrefix: revocation.DefaultKeyPrefix,
			Timeout:   revocation.DefaultTimeout,
			CacheTTL:  time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Engine can't run with.
func (c *Config) Validate() error {
	if c.Token.Secret == "" {
		return jwt.ErrMissingSigningKey
	}
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}
	if c.Token.Issuer != "" && strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("Token Issuer must not be blank")
	}

	if strings.TrimSpace(c.Revocation.KeyPrefix) == "" {
		return errors.New("Revocation KeyPrefix must not be empty")
	}
	if c.Revocation.Timeout < 0 {
		return errors.New("Revocation Timeout must be >= 0")
	}
	if c.Revocation.CacheSize < 0 {
		return errors.New("Revocation CacheSize must be >= 0")
	}
	if c.Revocation.CacheSize > 0 && c.Revocation.CacheTTL <= 0 {
		return errors.New("Revocation CacheTTL must be > 0 when the cache is enabled")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	default:
		return "high"
	}
}

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings from Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast returns warnings at or above min severity.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds warnings at or above min into one error, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.AtLeast(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that are valid but weaken the deployment. It never
// mutates c and is independent of Validate.
func (c *Config) Lint() LintResult {
	var ws LintResult

	if c.Token.Secret != "" {
		if km, err := jwt.NewKeyMaterial(c.Token.Secret, discardLogger()); err == nil && km.Padded() {
			ws = append(ws, LintWarning{
				Code:     "secret_short",
				Severity: LintHigh,
				Message:  "signing secret is shorter than 64 bytes and will be zero-padded",
			})
		}
	}
	if c.Token.TTL > 7*24*time.Hour {
		ws = append(ws, LintWarning{
			Code:     "ttl_long",
			Severity: LintWarn,
			Message:  "token lifetime exceeds 7 days; revocation entries live as long",
		})
	}
	if c.Token.Leeway > time.Minute {
		ws = append(ws, LintWarning{
			Code:     "leeway_large",
			Severity: LintWarn,
			Message:  "verification leeway exceeds 1m",
		})
	}
	if c.Revocation.FailOpen {
		ws = append(ws, LintWarning{
			Code:     "revocation_fail_open",
			Severity: LintHigh,
			Message:  "revoked tokens are admitted while the revocation store is unreachable",
		})
	}
	if c.Revocation.Timeout == 0 {
		ws = append(ws, LintWarning{
			Code:     "revocation_timeout_unbounded",
			Severity: LintWarn,
			Message:  "revocation store calls are bounded only by the request context",
		})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{
			Code:     "audit_disabled",
			Severity: LintInfo,
			Message:  "token lifecycle events are not audited",
		})
	}

	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Severity > ws[j].Severity })
	return ws
}
