// Command detector runs the disinformation detection pipeline: it
// consumes analysis events from JetStream, scores them with an ONNX
// model, derives verdicts through rule evaluation, and publishes
// results.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/hyperpolymath/disinfo-nsai-detector/config"
	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
	"github.com/hyperpolymath/disinfo-nsai-detector/inference"
	"github.com/hyperpolymath/disinfo-nsai-detector/metric"
	"github.com/hyperpolymath/disinfo-nsai-detector/natsclient"
	"github.com/hyperpolymath/disinfo-nsai-detector/orchestrator"
	"github.com/hyperpolymath/disinfo-nsai-detector/pkg/retry"
	"github.com/hyperpolymath/disinfo-nsai-detector/rules"
)

const shutdownTimeout = 30 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in main", "panic", r)
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Detector exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("Starting detector",
		"nats_url", cfg.NATS.URL,
		"stream", cfg.Stream.Name,
		"consumer", cfg.Stream.ConsumerName,
		"model", cfg.Inference.ModelPath)

	// Metrics
	registry := metric.NewMetricsRegistry()
	sink, err := metric.NewSink(registry, cfg.Metrics.BufferSize)
	if err != nil {
		return fmt.Errorf("create metric sink: %w", err)
	}
	if err := sink.Start(context.Background()); err != nil {
		return fmt.Errorf("start metric sink: %w", err)
	}
	defer sink.Stop(5 * time.Second)

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				logger.Warn("Metrics server stop failed", "error", err)
			}
		}()
		logger.Info("Metrics server listening", "address", metricsServer.Address())
	}

	// NATS
	client, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait.Duration),
		natsclient.WithTimeout(cfg.NATS.Timeout.Duration),
		natsclient.WithDrainTimeout(cfg.NATS.DrainTimeout.Duration),
		natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password),
		natsclient.WithToken(cfg.NATS.Token),
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry.CoreMetrics()),
	)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	// The broker may come up after us. Retry the dial on transient
	// failures; anything classified invalid or fatal aborts startup.
	connectCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	err = retry.Do(connectCtx, retry.Quick(), func() error {
		attemptCtx, cancel := context.WithTimeout(connectCtx, cfg.NATS.Timeout.Duration)
		defer cancel()
		if err := client.Connect(attemptCtx); err != nil {
			if errors.Classify(err) != errors.ErrorTransient {
				return retry.NonRetryable(err)
			}
			logger.Warn("NATS connect failed, will retry", "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.NATS.DrainTimeout.Duration)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}()

	consumer, err := retry.DoWithResult(connectCtx, retry.Quick(), func() (jetstream.Consumer, error) {
		return provisionStream(client, cfg)
	})
	if err != nil {
		return err
	}

	// Inference
	engine, err := inference.NewONNXEngine(inference.Config{
		ModelPath:   cfg.Inference.ModelPath,
		LibraryPath: cfg.Inference.LibraryPath,
		Timeout:     cfg.Inference.Timeout.Duration,
		MaxSessions: cfg.Inference.MaxSessions,
	})
	if err != nil {
		return fmt.Errorf("load inference engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("Inference engine close failed", "error", err)
		}
	}()

	// Rules
	evaluator, err := loadEvaluator(cfg)
	if err != nil {
		return fmt.Errorf("load rule program: %w", err)
	}

	// Pipeline
	orch, err := orchestrator.New(pipelineConfig(cfg), orchestrator.Deps{
		Source:    orchestrator.NewJetStreamSource(consumer, cfg.Pipeline.FetchTimeout.Duration),
		Publisher: orchestrator.NewJetStreamPublisher(client),
		Engine:    engine,
		Evaluator: evaluator,
		Context:   orchestrator.NewStaticContext(cfg.Rules.TrustedSources),
		Sink:      sink,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	if err := orch.Initialize(); err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}
	if err := orch.Start(context.Background()); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	logger.Info("Detector running, waiting for events",
		"subject", cfg.Stream.Subject)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutdown signal received", "signal", sig.String())

	if err := orch.Stop(shutdownTimeout); err != nil {
		logger.Warn("Orchestrator stop timed out, in-flight events will redeliver", "error", err)
	}
	return nil
}

// applyOverrides layers command line flags over the loaded config
func applyOverrides(cfg *config.Config, flags *Flags) {
	if flags.NATSURL != "" {
		cfg.NATS.URL = flags.NATSURL
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.MetricsPort > 0 {
		cfg.Metrics.Port = flags.MetricsPort
	}
	if flags.ModelPath != "" {
		cfg.Inference.ModelPath = flags.ModelPath
	}
}

// provisionStream ensures the stream and its durable consumer exist.
// The result and dead letter subjects live on the same stream so the
// broker's duplicate window covers published message IDs.
func provisionStream(client *natsclient.Client, cfg *config.Config) (jetstream.Consumer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := client.EnsureStream(ctx, jetstream.StreamConfig{
		Name: cfg.Stream.Name,
		Subjects: []string{
			cfg.Stream.Subject,
			cfg.Stream.ResultSubject,
			cfg.Stream.DeadLetterSubject,
		},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: cfg.Stream.DuplicateWindow.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream.Name, err)
	}

	consumer, err := client.EnsureConsumer(ctx, cfg.Stream.Name, jetstream.ConsumerConfig{
		Durable:       cfg.Stream.ConsumerName,
		FilterSubject: cfg.Stream.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.Stream.AckWait.Duration,
		MaxDeliver:    cfg.Stream.MaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure consumer %s: %w", cfg.Stream.ConsumerName, err)
	}

	return consumer, nil
}

// loadEvaluator builds the rule engine from the configured program
// file, falling back to the built-in verdict program.
func loadEvaluator(cfg *config.Config) (rules.Evaluator, error) {
	if cfg.Rules.ProgramPath == "" {
		return rules.NewDefaultEngine()
	}
	src, err := os.ReadFile(cfg.Rules.ProgramPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Rules.ProgramPath, err)
	}
	return rules.NewEngineFromSource(string(src))
}

// pipelineConfig maps the file config onto the orchestrator's config
func pipelineConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		MaxConcurrent:     cfg.Pipeline.MaxConcurrent,
		SlotWait:          cfg.Pipeline.SlotWait.Duration,
		MaxAttempts:       cfg.Pipeline.MaxAttempts,
		InitialBackoff:    cfg.Pipeline.InitialBackoff.Duration,
		MaxBackoff:        cfg.Pipeline.MaxBackoff.Duration,
		RuleTimeout:       cfg.Rules.Timeout.Duration,
		PublishTimeout:    cfg.Pipeline.PublishTimeout.Duration,
		FetchTimeout:      cfg.Pipeline.FetchTimeout.Duration,
		ResultSubject:     cfg.Stream.ResultSubject,
		DeadLetterSubject: cfg.Stream.DeadLetterSubject,
		Thresholds: orchestrator.Thresholds{
			FakenessHigh:     cfg.Pipeline.FakenessHigh,
			FakenessElevated: cfg.Pipeline.FakenessElevated,
			EmotionHigh:      cfg.Pipeline.EmotionHigh,
			VisualArtifact:   cfg.Pipeline.VisualArtifact,
		},
	}
}
