package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.temporal.io/sdk/worker"

	"action-lifecycle-service/internal/activities"
	"action-lifecycle-service/internal/bootstrap"
	"action-lifecycle-service/internal/config"
	"action-lifecycle-service/internal/logging"
	"action-lifecycle-service/internal/workflows"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.Temporal.Enabled {
		log.Fatalf("worker needs temporal.enabled")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	rt, err := bootstrap.NewRuntime(context.Background(), cfg, logger, nil)
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}
	defer rt.Close()

	w := worker.New(rt.Temporal, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.SuperviseAction)
	w.RegisterActivity(&activities.Activities{Engine: rt.Engine})

	logger.Info("worker started", "taskQueue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker exited", "error", err)
	}
}
