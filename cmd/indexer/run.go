package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goran-ethernal/TokenLedger/internal/common"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/metrics"
	"github.com/goran-ethernal/TokenLedger/internal/worker"
	"github.com/goran-ethernal/TokenLedger/pkg/api"
)

const metricsStopTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Index every configured chain (default)",
	RunE:  runIndexer,
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewComponentLoggerFromConfig(common.ComponentSupervisor, cfg.Logging)

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics,
			logger.NewComponentLoggerFromConfig(common.ComponentMetrics, cfg.Logging))
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), metricsStopTimeout)
			defer cancel()
			if err := metricsServer.Stop(stopCtx); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	supervisor := worker.NewSupervisor(
		app.chainIDs(),
		app.newWorker,
		app.board,
		cfg.Supervisor.LivenessInterval.Duration,
		log,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := supervisor.Run(gctx); err != nil {
			return fmt.Errorf("supervisor: %w", err)
		}
		// workers only stop on cancellation, make sure the API follows
		stop()
		return nil
	})

	if cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, app.registry(),
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging))
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
	}

	log.Infof("Starting TokenLedger for %d chain(s)...", len(cfg.Chains))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("TokenLedger stopped")
	return nil
}
