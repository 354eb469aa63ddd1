package tokenguard

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// 70 bytes, not valid standard base64, so it is used verbatim.
var testSecret = strings.Repeat("s3cret-", 10)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	cfg.Audit.Enabled = false
	return cfg
}

type testEngine struct {
	*Engine
	mr    *miniredis.Miniredis
	clock *manualClock
}

func buildTestEngine(t *testing.T, cfg Config, configure ...func(*Builder)) testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	clock := newManualClock()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(clock.Now).
		WithLogger(discardLogger())
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return testEngine{Engine: engine, mr: mr, clock: clock}
}
