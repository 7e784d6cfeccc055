package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"action-lifecycle-service/internal/bootstrap"
	"action-lifecycle-service/internal/config"
	"action-lifecycle-service/internal/logging"
	"action-lifecycle-service/internal/queue"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		retries    int
		backoff    time.Duration
	)

	cmd := &cobra.Command{
		Use:          "consumer",
		Short:        "Apply lifecycle commands from the Kafka commands topic",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Kafka.CommandsTopic == "" || len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers and kafka.commands_topic are required")
			}
			if cfg.Store.Driver == config.DriverMemory {
				return fmt.Errorf("consumer needs a shared store; set store.driver to %q", config.DriverDynamo)
			}
			logger := logging.New(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap.NewRuntime(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommandsTopic, cfg.Kafka.GroupID)
			defer consumer.Close()

			d := &queue.Dispatcher{
				Consumer:        consumer,
				Engine:          rt.Engine,
				Logger:          logger,
				ConflictRetries: retries,
				Backoff:         backoff,
			}
			logger.Info("consumer started", "topic", cfg.Kafka.CommandsTopic, "group", cfg.Kafka.GroupID)
			return d.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Config file path (YAML)")
	cmd.Flags().IntVar(&retries, "conflict-retries", 3, "Re-apply a command this many times after a version conflict")
	cmd.Flags().DurationVar(&backoff, "conflict-backoff", 200*time.Millisecond, "Pause between conflict retries")

	return cmd
}
