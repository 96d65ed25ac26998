package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/strandkit/strand/pkg/log"
	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/otelhelper"
	"github.com/strandkit/strand/pkg/protocol"
	"github.com/strandkit/strand/pkg/record"
	"github.com/strandkit/strand/pkg/registry"
	"github.com/strandkit/strand/pkg/workflow"
)

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run a workflow definition against a seed payload",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow definition JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the seed payload JSON file",
			},
			&cli.StringFlag{
				Name:  "trigger",
				Usage: "Trigger node ID to seed (required with multiple triggers)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Worker pool size",
				Value:   8,
				Sources: cli.EnvVars("STRAND_WORKERS"),
			},
			&cli.DurationFlag{
				Name:  "node-timeout",
				Usage: "Default per-node timeout (0 disables)",
			},
			&cli.StringFlag{
				Name:    "sink",
				Usage:   "Record sink (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("STRAND_SINK"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses for the kafka sink",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for the run",
				Sources: cli.EnvVars("STRAND_TRACING"),
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))
	logger := log.WithModule("run")

	def, err := loadDefinition(command.String("file"))
	if err != nil {
		return err
	}

	seedData := map[string]any{}
	if path := command.String("data"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed payload: %w", err)
		}

		if err := json.Unmarshal(raw, &seedData); err != nil {
			return fmt.Errorf("parse seed payload: %w", err)
		}
	}

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	sink, err := newSink(logger, command)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("failed to close record sink", "error", err)
		}
	}()

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithWorkers(int(command.Int("workers"))),
		workflow.WithSink(sink),
		workflow.WithAdapters(loggingAdapters(logger)),
	}

	if timeout := command.Duration("node-timeout"); timeout > 0 {
		opts = append(opts, workflow.WithDefaultTimeout(timeout))
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "strand")
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}

		opts = append(opts, workflow.WithTracer(tracer))
	}

	executor := workflow.NewExecutor(reg, opts...)
	defer executor.Shutdown()

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := time.Now()

	run, err := executor.Start(runCtx, def, workflow.Seed{
		TriggerNodeID: command.String("trigger"),
		Data:          seedData,
	})
	if err != nil {
		return err
	}

	final, runErr := run.Wait(runCtx)

	report, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(command.Writer, string(report))
	logger.Info("run finished",
		"execution_id", final.ID, "status", final.Status, "duration", time.Since(started))

	if runErr != nil {
		return runErr
	}

	if final.Status != models.RunStatusSucceeded && final.Status != models.RunStatusPartiallyRecovered {
		return fmt.Errorf("run ended with status %s", final.Status)
	}

	return nil
}

func newSink(logger *slog.Logger, command *cli.Command) (record.Sink, error) {
	switch command.String("sink") {
	case "memory":
		return record.NewMemorySink(), nil
	case "kafka":
		brokers := command.StringSlice("kafka-brokers")
		if len(brokers) == 0 {
			return nil, fmt.Errorf("kafka sink requires --kafka-brokers")
		}

		return record.NewKafkaSink(logger, brokers), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", command.String("sink"))
	}
}

// loggingAdapters backs every adapter-dependent node type with a logger, so
// definitions run end to end without live integrations wired in.
func loggingAdapters(logger *slog.Logger) protocol.AdapterRegistry {
	adapters := protocol.AdapterMap{}

	for _, nodeType := range []string{
		models.NodeTypeEmail,
		models.NodeTypeWebhookOutput,
		models.NodeTypeDatabaseOutput,
		models.NodeTypeFileOutput,
		models.NodeTypeSlack,
		models.NodeTypeLLM,
	} {
		adapters[nodeType] = protocol.AdapterFunc(
			func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
				logger.InfoContext(ctx, "adapter invoked",
					"node_type", nodeType, "run_id", input.RunID, "data", input.Data)

				return input.Data, nil
			})
	}

	return adapters
}
