package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"action-lifecycle-service/internal/bootstrap"
	"action-lifecycle-service/internal/config"
	"action-lifecycle-service/internal/httpapi"
	"action-lifecycle-service/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := bootstrap.NewRuntime(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer rt.Close()

	app := &httpapi.App{
		Engine:  rt.Engine,
		Logger:  logger,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if rt.Temporal != nil {
		app.Workflows = rt.Temporal
	}

	r := chi.NewRouter()
	httpapi.RegisterRoutes(r, app, cfg.HTTP.AllowedOrigins)
	if rt.Temporal != nil {
		registerUIRoutes(r, rt.Temporal)
	}

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api listening", "addr", cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
