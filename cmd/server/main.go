package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/grepto/dash-macrodata/internal/api"
	"github.com/grepto/dash-macrodata/internal/chart"
	"github.com/grepto/dash-macrodata/internal/config"
	"github.com/grepto/dash-macrodata/internal/dashboard"
	"github.com/grepto/dash-macrodata/internal/engine"
	"github.com/grepto/dash-macrodata/internal/logging"
	"github.com/grepto/dash-macrodata/internal/metrics"
	"github.com/grepto/dash-macrodata/internal/models"
	"github.com/grepto/dash-macrodata/internal/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logging.Close()

	// 1. Load the dataset before listening. A bad file never serves traffic.
	ds, err := engine.Load(cfg.Data.Path, engine.WithLogger(logger))
	if err != nil {
		logger.Error("failed to load dataset", "path", cfg.Data.Path, "error", err)
		return err
	}
	defer ds.Release()

	// 2. Selection state and the view pipeline
	store, err := state.NewStore(ds, state.Defaults{
		Countries: cfg.Data.DefaultCountries,
		Indicator: cfg.Data.DefaultIndicator,
		Years:     models.YearRange{From: cfg.Data.DefaultYearFrom, To: cfg.Data.DefaultYearTo},
	}, logger)
	if err != nil {
		return fmt.Errorf("init selection: %w", err)
	}

	m := metrics.New()
	svc := dashboard.New(ds, store,
		dashboard.WithAdapter(chart.NewAdapter(cfg.Charts.FrameDuration)),
		dashboard.WithRenderer(chart.NewRenderer(cfg.Charts.ImageWidth, cfg.Charts.ImageHeight)),
		dashboard.WithTopN(cfg.Charts.RaceTopN),
		dashboard.WithMetrics(m),
		dashboard.WithLogger(logger),
	)

	// 3. HTTP + WebSocket
	h := api.NewHandler(svc, m, cfg.Server.AllowedOrigins, logger)
	e := api.NewServer(*cfg, h, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
