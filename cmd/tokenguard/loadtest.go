package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type loadtestOptions struct {
	tokens       int
	concurrency  int
	ops          int
	revokedRatio float64
	redisAddr    string
	prefix       string
}

func newLoadtestCmd() *cobra.Command {
	opts := loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure validate and logout throughput against a revocation redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.tokens <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return errors.New("tokens, concurrency, and ops must be > 0")
			}
			if opts.revokedRatio < 0 || opts.revokedRatio > 1 {
				return errors.New("revoked-ratio must be within [0,1]")
			}
			if opts.redisAddr == "" {
				opts.redisAddr = os.Getenv("REDIS_ADDR")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.tokens, "tokens", 10000, "number of tokens to issue")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 100000, "operations per phase")
	cmd.Flags().Float64Var(&opts.revokedRatio, "revoked-ratio", 0.1, "share of tokens revoked before the validate phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "loadtest:blacklist:", "revocation key prefix")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	addr := opts.redisAddr
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("failed to start miniredis: %w", err)
		}
		cleanup = append(cleanup, mr.Close)
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	cleanup = append(cleanup, func() { _ = client.Close() })

	cfg := tokenguard.DefaultConfig()
	cfg.Token.Secret = strings.Repeat("loadtest-", 8)
	cfg.Audit.Enabled = false

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine, err := tokenguard.New().
		WithConfig(cfg).
		WithRevocationStore(revocation.NewRedisStore(client, revocation.WithKeyPrefix(opts.prefix))).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	tokens := make([]string, opts.tokens)
	revoked := int(float64(opts.tokens) * opts.revokedRatio)
	fmt.Fprintf(out, "issuing %d tokens (%d revoked)...\n", opts.tokens, revoked)
	startSeed := time.Now()
	for i := range tokens {
		issued, err := engine.Issue(ctx, tokenguard.Principal{ID: fmt.Sprintf("u-%d", i)})
		if err != nil {
			return fmt.Errorf("issue failed: %w", err)
		}
		tokens[i] = issued.Token
		if i < revoked {
			if err := engine.Logout(ctx, issued.Token); err != nil {
				return fmt.Errorf("seed logout failed: %w", err)
			}
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(opts.ops, opts.concurrency, 7919, func(r *rand.Rand) error {
		_, err := engine.Validate(ctx, tokens[r.Intn(len(tokens))])
		if errors.Is(err, tokenguard.ErrTokenRevoked) {
			return nil
		}
		return err
	})
	logoutStats := runPhase(opts.ops, opts.concurrency, 6151, func(r *rand.Rand) error {
		return engine.Logout(ctx, tokens[r.Intn(len(tokens))])
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "validate", validateStats)
	printStats(out, "logout", logoutStats)

	snap := engine.MetricsSnapshot()
	fmt.Fprintf(out, "revoked rejections=%d logout store failures=%d\n",
		snap.Counters[tokenguard.MetricValidateRevoked],
		snap.Counters[tokenguard.MetricLogoutStoreFailure],
	)
	return nil
}

// runPhase spreads ops calls of op over concurrency workers and records
// per-call latency. A non-nil result counts as a failure.
func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
