package tokenguard

import (
	"errors"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	internalflows "github.com/MrEthical07/tokenguard/internal/flows"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/revocation"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  revocation.Store

	logger      logrus.FieldLogger
	auditSink   AuditSink
	credentials CredentialDirectory
	now         func() time.Time
	random      io.Reader

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs the revocation list with a Redis client. It is ignored when
// WithRevocationStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRevocationStore supplies a ready revocation backend.
func (b *Builder) WithRevocationStore(store revocation.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithCredentials enables Engine.Login.
func (b *Builder) WithCredentials(dir CredentialDirectory) *Builder {
	b.credentials = dir
	return b
}

// WithClock replaces time.Now for issuance and verification.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRandom replaces crypto/rand as the token id source.
func (b *Builder) WithRandom(r io.Reader) *Builder {
	b.random = r
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine. A missing signing
// secret or revocation backend is a startup error.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- KEYS + MANAGER --------
	keys, err := jwt.NewKeyMaterial(cfg.Token.Secret, logger)
	if err != nil {
		return nil, err
	}
	jm, err := jwt.NewManager(jwt.Config{
		TTL:    cfg.Token.TTL,
		Keys:   keys,
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
		Now:    now,
		Random: b.random,
	})
	if err != nil {
		return nil, err
	}

	// -------- REVOCATION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("revocation store or redis client required")
		}
		store = revocation.NewRedisStore(b.redis,
			revocation.WithKeyPrefix(cfg.Revocation.KeyPrefix),
			revocation.WithTimeout(cfg.Revocation.Timeout),
		)
	}
	backend := backendName(store)
	if cfg.Revocation.CacheSize > 0 {
		store = revocation.NewCachedStore(store, cfg.Revocation.CacheSize, cfg.Revocation.CacheTTL)
	}

	engine := &Engine{
		config:      cfg,
		logger:      logger,
		keys:        keys,
		jwtManager:  jm,
		store:       store,
		backend:     backend,
		credentials: b.credentials,
		metrics:     NewMetrics(cfg.Metrics),
	}

	// -------- AUDIT --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.audit.OnDrop(func(ev internalaudit.Event) {
		logger.WithFields(logrus.Fields{
			"event_type": ev.EventType,
			"event_id":   ev.ID,
		}).Warn("audit buffer full; event dropped")
	})

	// -------- FLOWS --------
	engine.flows = internalflows.New(internalflows.Deps{
		Validate: internalflows.ValidateDeps{
			Verify:      jm.Verify,
			Revocations: store,
			FailOpen:    cfg.Revocation.FailOpen,
		},
		Logout: internalflows.LogoutDeps{
			Verify:      jm.Verify,
			Now:         now,
			Revocations: store,
			Leeway:      jm.Leeway(),
		},
	})

	b.built = true

	return engine, nil
}

func backendName(store revocation.Store) string {
	switch store.(type) {
	case *revocation.RedisStore:
		return "redis"
	case *revocation.PostgresStore:
		return "postgres"
	case *revocation.MemoryStore:
		return "memory"
	default:
		return "custom"
	}
}
