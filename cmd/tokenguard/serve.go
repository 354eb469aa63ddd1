package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/MrEthical07/tokenguard/internal/config"
	"github.com/MrEthical07/tokenguard/internal/httpapi"
	promexport "github.com/MrEthical07/tokenguard/metrics/export/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		dev    bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP authentication service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configFile, root.envFiles...)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Logging, os.Stderr)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger, dev, strict)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "use an embedded redis for revocations")
	cmd.Flags().BoolVar(&strict, "strict", false, "refuse to start on high-severity config findings")
	return cmd
}

func serve(ctx context.Context, cfg *config.ServiceConfig, logger *logrus.Logger, dev, strict bool) error {
	be, err := openBackend(ctx, cfg, dev, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	engine, err := buildEngine(cfg, be.store, logger, strict)
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.WithFields(logrus.Fields{
		"algorithm":   report.SigningAlgorithm,
		"key_padded":  report.KeyPadded,
		"ttl":         report.TokenTTL,
		"backend":     report.RevocationBackend,
		"fail_open":   report.RevocationFailOpen,
		"audit":       report.AuditEnabled,
		"users":       len(cfg.Users),
		"http_listen": cfg.HTTP.Address,
	}).Info("tokenguard starting")

	opts := httpapi.Options{
		Engine:            engine,
		Logger:            logger,
		TrustProxyHeaders: cfg.HTTP.TrustProxyHeaders,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = promexport.NewPrometheusExporter(engine).Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      httpapi.NewRouter(opts),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
