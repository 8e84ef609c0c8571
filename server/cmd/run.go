package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/stdr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/transformerzoo/zoo-server/common/pkg/db"
	"github.com/transformerzoo/zoo-server/server/internal/auth"
	"github.com/transformerzoo/zoo-server/server/internal/cache"
	"github.com/transformerzoo/zoo-server/server/internal/config"
	"github.com/transformerzoo/zoo-server/server/internal/monitoring"
	"github.com/transformerzoo/zoo-server/server/internal/rate"
	"github.com/transformerzoo/zoo-server/server/internal/registry"
	"github.com/transformerzoo/zoo-server/server/internal/runtime"
	"github.com/transformerzoo/zoo-server/server/internal/server"
	"github.com/transformerzoo/zoo-server/server/internal/store"
)

func runCmd() *cobra.Command {
	var path string
	var logLevel int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Parse(path)
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), &c, logLevel)
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "Path to the config file")
	cmd.Flags().IntVar(&logLevel, "v", 0, "Log level")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, c *config.Config, lv int) error {
	stdr.SetVerbosity(lv)
	logger := stdr.New(log.Default())
	bootLog := logger.WithName("boot")

	dbInst, err := db.Open(c.Database)
	if err != nil {
		return err
	}
	st := store.New(dbInst)
	if err := st.AutoMigrate(); err != nil {
		return err
	}

	m := monitoring.NewMetricsMonitor()
	defer m.UnregisterAllCollectors()

	resultCache := cache.New(ctx, c.Cache, logger)
	limiter := rate.NewLimiter(c.RateLimit, logger)

	var reg *registry.R
	if c.Debug.Standalone {
		bootLog.Info("Running in standalone mode; checkpoints are fabricated locally")
		reg = registry.NewStandalone(c.ModelDir, logger)
	} else {
		s3Client, err := registry.NewS3Client(ctx, c.ObjectStore.S3)
		if err != nil {
			return err
		}
		reg = registry.New(c.ModelDir, c.ObjectStore.S3.PathPrefix, c.ModelSizeLimitGiB, s3Client, logger)
	}
	rt := runtime.New(reg, m, logger)

	authn := auth.NewAuthenticator(st, c.Auth.Secret(), c.Auth.TokenDuration, logger)

	srv := server.New(st, resultCache, limiter, rt, authn, m, c.MaxInputTokens, logger)

	errCh := make(chan error)

	go func() {
		errCh <- srv.Run(c.HTTPPort)
	}()

	go func() {
		log := logger.WithName("metrics")
		log.Info("Starting metrics server...", "port", c.MonitoringPort)
		monitorMux := http.NewServeMux()
		monitorMux.Handle("/metrics", promhttp.Handler())
		errCh <- http.ListenAndServe(fmt.Sprintf(":%d", c.MonitoringPort), monitorMux)
		log.Info("Stopped metrics server")
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		bootLog.Info("Got termination signal.", "signal", sig, "timeout", c.GracefulShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.GracefulShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	bootLog.Info("Shutting down.")
	return nil
}
