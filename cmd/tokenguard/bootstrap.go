package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/config"
	"github.com/MrEthical07/tokenguard/internal/credentials"
	"github.com/MrEthical07/tokenguard/password"
	"github.com/MrEthical07/tokenguard/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const connectAttempts = 5

func newLogger(cfg config.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// backend is an opened revocation store plus whatever must be released on shutdown.
type backend struct {
	store   revocation.Store
	cleanup []func()
}

func (b *backend) Close() {
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		b.cleanup[i]()
	}
}

// openBackend connects the configured revocation backend. In dev mode the
// redis backend runs on an embedded miniredis.
func openBackend(ctx context.Context, cfg *config.ServiceConfig, dev bool, logger logrus.FieldLogger) (*backend, error) {
	b := &backend{}

	switch cfg.Revocation.Backend {
	case "memory":
		b.store = revocation.NewMemoryStore(nil)

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.cleanup = append(b.cleanup, pool.Close)

		if err := retry(ctx, logger, "postgres", pool.Ping); err != nil {
			b.Close()
			return nil, err
		}

		store, err := revocation.NewPostgresStore(pool, revocation.PostgresOptions{
			Table:   cfg.Postgres.Table,
			Timeout: cfg.Revocation.Timeout,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}

		purgeCtx, cancel := context.WithCancel(context.Background())
		go store.RunPurger(purgeCtx, cfg.Revocation.PurgeInterval, logger)
		b.cleanup = append(b.cleanup, cancel)
		b.store = store

	default:
		addr := cfg.Redis.Addr
		if dev {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("embedded redis: %w", err)
			}
			b.cleanup = append(b.cleanup, mr.Close)
			addr = mr.Addr()
			logger.WithField("addr", addr).Warn("dev mode: revocations live in an embedded redis and are lost on exit")
		}

		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.cleanup = append(b.cleanup, func() { _ = client.Close() })

		if err := retry(ctx, logger, "redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}); err != nil {
			b.Close()
			return nil, err
		}

		b.store = revocation.NewRedisStore(client,
			revocation.WithKeyPrefix(cfg.Revocation.KeyPrefix),
			revocation.WithTimeout(cfg.Revocation.Timeout),
		)
	}

	return b, nil
}

func retry(ctx context.Context, logger logrus.FieldLogger, name string, ping func(context.Context) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts),
		ctx,
	)
	err := backoff.RetryNotify(func() error {
		return ping(ctx)
	}, policy, func(err error, next time.Duration) {
		logger.WithError(err).WithField("retry_in", next).Warnf("%s not reachable", name)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func auditSink(cfg config.AuditConfig, logger logrus.FieldLogger) tokenguard.AuditSink {
	switch cfg.Sink {
	case "stdout":
		return tokenguard.NewJSONWriterSink(os.Stdout)
	case "none":
		return tokenguard.NoOpSink{}
	default:
		return tokenguard.NewLogrusSink(logger.WithField("component", "audit"))
	}
}

func credentialDirectory(cfg *config.ServiceConfig, logger logrus.FieldLogger) (*credentials.Directory, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	users := make([]credentials.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, credentials.User{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
		})
	}
	return credentials.NewDirectory(hasher, users, logger)
}

// buildEngine wires an Engine over store and reports lint findings.
func buildEngine(cfg *config.ServiceConfig, store revocation.Store, logger logrus.FieldLogger, strict bool) (*tokenguard.Engine, error) {
	engineCfg := cfg.Engine()

	lint := engineCfg.Lint()
	for _, w := range lint {
		entry := logger.WithFields(logrus.Fields{"code": w.Code, "severity": w.Severity.String()})
		if w.Severity >= tokenguard.LintHigh {
			entry.Warn(w.Message)
		} else {
			entry.Info(w.Message)
		}
	}
	if strict {
		if err := lint.AsError(tokenguard.LintHigh); err != nil {
			return nil, err
		}
	}

	dir, err := credentialDirectory(cfg, logger)
	if err != nil {
		return nil, err
	}

	builder := tokenguard.New().
		WithConfig(engineCfg).
		WithRevocationStore(store).
		WithLogger(logger).
		WithAuditSink(auditSink(cfg.Audit, logger))
	if dir.Len() > 0 {
		builder = builder.WithCredentials(dir)
	}
	return builder.Build()
}
