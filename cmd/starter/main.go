package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"action-lifecycle-service/internal/bootstrap"
	"action-lifecycle-service/internal/config"
	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/logging"
	"action-lifecycle-service/internal/modal"
	"action-lifecycle-service/internal/queue"
	"action-lifecycle-service/internal/workflows"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "starter",
		Short:        "Operate action supervisor workflows",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Config file path (YAML)")

	load := func() (*config.Config, error) { return config.Load(configPath) }
	dial := func() (client.Client, *config.Config, error) {
		cfg, err := load()
		if err != nil {
			return nil, nil, err
		}
		tc, err := bootstrap.DialTemporal(cfg.Temporal, logging.New(cfg.Log.Level, cfg.Log.Format))
		return tc, cfg, err
	}
	openProducer := func() (commandPublisher, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		if cfg.Kafka.CommandsTopic == "" {
			return nil, fmt.Errorf("kafka.commands_topic is required")
		}
		return queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.CommandsTopic)
	}

	cmd.AddCommand(superviseCmd(dial), decideCmd(dial), inspectCmd(dial), enqueueCmd(openProducer))
	return cmd
}

type dialFunc func() (client.Client, *config.Config, error)

type commandPublisher interface {
	PublishCommand(ctx context.Context, env queue.CommandMessage) error
	Close() error
}

// enqueueCmd puts a command on the Kafka command topic for the consumer.
// The envelope is decoded locally first so malformed commands never reach
// the topic.
func enqueueCmd(open func() (commandPublisher, error)) *cobra.Command {
	var (
		caller string
		params string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <actionId> <command>",
		Short: "Queue a lifecycle command on the command topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := queue.CommandMessage{
				Command:  args[1],
				ActionID: args[0],
				Caller:   caller,
				At:       time.Now().UTC(),
			}
			if params != "" {
				if !json.Valid([]byte(params)) {
					return fmt.Errorf("--params is not valid JSON")
				}
				env.Params = json.RawMessage(params)
			}
			if caller == "" {
				return fmt.Errorf("--caller is required")
			}
			if _, err := lifecycle.Decode(env); err != nil {
				return err
			}

			p, err := open()
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := p.PublishCommand(ctx, env); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s for action %s\n", env.Command, env.ActionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "Identity the command is issued as")
	cmd.Flags().StringVar(&params, "params", "", "Command parameters as a JSON object")
	return cmd
}

// superviseCmd starts a supervisor for an existing action without waiting
// for its next lifecycle event.
func superviseCmd(dial dialFunc) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "supervise <actionId>",
		Short: "Start the supervisor workflow for an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, cfg, err := dial()
			if err != nil {
				return err
			}
			defer tc.Close()

			actionID := args[0]
			opts := client.StartWorkflowOptions{
				ID:                                       workflows.WorkflowID(actionID),
				TaskQueue:                                cfg.Temporal.TaskQueue,
				WorkflowExecutionErrorWhenAlreadyStarted: true,
				WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			we, err := tc.ExecuteWorkflow(ctx, opts, workflows.SuperviseAction, actionID)
			if err != nil {
				return fmt.Errorf("unable to execute workflow: %w", err)
			}
			fmt.Printf("started workflow: WorkflowID=%s RunID=%s\n", we.GetID(), we.GetRunID())

			if wait <= 0 {
				return nil
			}
			wctx, wcancel := context.WithTimeout(cmd.Context(), wait)
			defer wcancel()

			var result string
			if err := we.Get(wctx, &result); err != nil {
				return fmt.Errorf("unable to get workflow result: %w", err)
			}
			fmt.Printf("workflow result: %s\n", result)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait this long for the action to finish")
	return cmd
}

func decideCmd(dial dialFunc) *cobra.Command {
	var (
		decider string
		notes   string
		cancel  bool
	)

	cmd := &cobra.Command{
		Use:   "decide <actionId> <taskId>",
		Short: "Answer a pending restore task (continue, or cancel with --cancel)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if decider == "" {
				return fmt.Errorf("--decider is required")
			}
			tc, _, err := dial()
			if err != nil {
				return err
			}
			defer tc.Close()

			d := modal.TaskDecision{
				TaskID:    args[1],
				Approved:  !cancel,
				Notes:     notes,
				Decider:   decider,
				DecidedAt: time.Now().UTC(),
			}

			ctx, done := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer done()

			if err := tc.SignalWorkflow(ctx, workflows.WorkflowID(args[0]), "", workflows.TaskDecisionSignal, d); err != nil {
				return fmt.Errorf("signal decision: %w", err)
			}
			fmt.Printf("decision sent for task %s\n", d.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&decider, "decider", "", "Producer identity answering the task")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes kept in the audit log")
	cmd.Flags().BoolVar(&cancel, "cancel", false, "Cancel the task instead of continuing")
	return cmd
}

func inspectCmd(dial dialFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <actionId>",
		Short: "Print the supervisor's state, pending task and audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, _, err := dial()
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			wid := workflows.WorkflowID(args[0])
			var (
				status workflows.ActionStatus
				task   *modal.HumanTask
				audit  []modal.AuditEvent
			)
			for _, q := range []struct {
				name string
				out  any
			}{
				{workflows.QueryActionState, &status},
				{workflows.QueryPendingTask, &task},
				{workflows.QueryAuditLog, &audit},
			} {
				val, err := tc.QueryWorkflow(ctx, wid, "", q.name)
				if err != nil {
					return fmt.Errorf("query %s: %w", q.name, err)
				}
				if err := val.Get(q.out); err != nil {
					return fmt.Errorf("decode %s: %w", q.name, err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"status": status, "pendingTask": task, "audit": audit})
		},
	}
}
