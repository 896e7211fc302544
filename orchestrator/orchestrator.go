package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperpolymath/disinfo-nsai-detector/errors"
	"github.com/hyperpolymath/disinfo-nsai-detector/inference"
	"github.com/hyperpolymath/disinfo-nsai-detector/message"
	"github.com/hyperpolymath/disinfo-nsai-detector/metric"
	"github.com/hyperpolymath/disinfo-nsai-detector/rules"
)

// Deps are the collaborators the orchestrator drives
type Deps struct {
	Source    Source
	Publisher Publisher
	Engine    inference.Engine
	Evaluator rules.Evaluator

	// Context supplies source facts. Defaults to an empty
	// StaticContext, which marks every source untrusted.
	Context ContextProvider

	// Sink receives metric samples. Optional.
	Sink *metric.Sink

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Orchestrator consumes analysis events, runs inference and rule
// evaluation, and publishes results
type Orchestrator struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	backoff errors.RetryConfig

	// slots bounds concurrent event processing
	slots chan struct{}

	mu          sync.Mutex
	initialized bool
	started     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New creates an orchestrator from a config and its collaborators
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Orchestrator", "New", "validate config")
	}
	if deps.Source == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Orchestrator", "New", "check source")
	}
	if deps.Publisher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Orchestrator", "New", "check publisher")
	}
	if deps.Engine == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Orchestrator", "New", "check inference engine")
	}
	if deps.Evaluator == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Orchestrator", "New", "check rule evaluator")
	}
	if deps.Context == nil {
		deps.Context = NewStaticContext(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "orchestrator"),
		backoff: errors.RetryConfig{
			MaxRetries:    cfg.MaxAttempts,
			InitialDelay:  cfg.InitialBackoff,
			MaxDelay:      cfg.MaxBackoff,
			BackoffFactor: 2.0,
		},
		slots: make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Initialize prepares the orchestrator for Start
func (o *Orchestrator) Initialize() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		return nil
	}
	o.initialized = true
	o.logger.Info("Orchestrator initialized",
		"max_concurrent", o.cfg.MaxConcurrent,
		"max_attempts", o.cfg.MaxAttempts,
		"result_subject", o.cfg.ResultSubject)
	return nil
}

// Start launches the consume loop. It returns once the loop is
// running; processing continues until ctx is cancelled or Stop is
// called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		return errors.WrapFatal(errors.ErrNotStarted, "Orchestrator", "Start", "check initialization")
	}
	if o.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Orchestrator", "Start", "check state")
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.started = true

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(runCtx)
	}()

	o.logger.Info("Orchestrator started")
	return nil
}

// Stop cancels the consume loop and waits for in-flight events to
// finish, up to timeout
func (o *Orchestrator) Stop(timeout time.Duration) error {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = false
	cancel := o.cancel
	o.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("Orchestrator stopped")
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrShuttingDown,
			"Orchestrator", "Stop", "wait for in-flight events")
	}
}

// run is the consume loop: fetch a delivery, bound slot acquisition,
// hand off to a worker goroutine.
func (o *Orchestrator) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		delivery, err := o.deps.Source.Next(ctx)
		if err != nil {
			if stderrors.Is(err, ErrNoEvents) || ctx.Err() != nil {
				continue
			}
			o.logger.Warn("Fetch failed", "error", err)
			select {
			case <-time.After(o.backoff.InitialDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		o.record(metric.SampleEventReceived, 1, map[string]string{"subject": delivery.Subject()})

		// Acquire a work slot. An event that cannot get one within
		// SlotWait is left unacknowledged so the broker redelivers it
		// instead of queueing unbounded work here.
		waitStart := time.Now()
		select {
		case o.slots <- struct{}{}:
			o.record(metric.SampleSlotWait, time.Since(waitStart).Seconds(), nil)
		case <-time.After(o.cfg.SlotWait):
			o.record(metric.SampleSlotWaitExceeded, 1, nil)
			o.record(metric.SampleOutcome, 1, map[string]string{"outcome": metric.OutcomeRedelivered})
			o.logger.Warn("No work slot available, leaving event for redelivery",
				"subject", delivery.Subject(), "waited", time.Since(waitStart))
			continue
		case <-ctx.Done():
			return
		}

		o.wg.Add(1)
		go func(d Delivery) {
			defer o.wg.Done()
			defer func() { <-o.slots }()
			o.process(ctx, d)
		}(delivery)
	}
}

// process drives one delivery through the pipeline
func (o *Orchestrator) process(ctx context.Context, delivery Delivery) {
	o.record(metric.SampleInFlightDelta, 1, nil)
	defer o.record(metric.SampleInFlightDelta, -1, nil)

	start := time.Now()

	input, err := o.decode(delivery)
	if err != nil {
		// Decode failures are permanent for the payload, never retried.
		o.deadLetter(ctx, delivery, "", StageDecoding, classInvalid, err, 1)
		return
	}

	logger := o.logger.With("content_hash", input.ContentHash, "source_id", input.SourceID)

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		stage, err := o.attempt(ctx, input)
		if err == nil {
			o.acknowledge(delivery, logger)
			o.record(metric.SampleProcessingDuration, time.Since(start).Seconds(), nil)
			return
		}

		class := classifyFailure(stage, err)
		if class == classContract {
			logger.Error("Contract violation on internally produced result",
				"stage", stage.String(), "error", err)
		} else {
			logger.Warn("Processing attempt failed",
				"stage", stage.String(), "class", class.String(),
				"attempt", attempt, "error", err)
		}

		if class.terminal() || attempt >= class.attemptBudget(o.cfg.MaxAttempts) {
			o.deadLetter(ctx, delivery, input.ContentHash, stage, class, err, attempt)
			return
		}

		o.record(metric.SampleRetry, 1, map[string]string{"stage": stage.String()})
		select {
		case <-time.After(o.backoff.BackoffDelay(attempt - 1)):
		case <-ctx.Done():
			// Shutting down mid-event: hand it back promptly.
			o.redeliver(delivery, logger)
			return
		}
	}
}

// decode parses and validates the raw payload
func (o *Orchestrator) decode(delivery Delivery) (*message.AnalysisInput, error) {
	stageStart := time.Now()
	input, err := message.DecodeInput(delivery.Data())
	o.recordStage(StageDecoding, stageStart)
	return input, err
}

// attempt runs one full pass of infer, derive, encode, publish. On
// failure it reports the stage that failed.
func (o *Orchestrator) attempt(ctx context.Context, input *message.AnalysisInput) (Stage, error) {
	stageStart := time.Now()
	scores, err := o.deps.Engine.Predict(ctx, &inference.Request{
		ContentHash: input.ContentHash,
		ContentText: input.ContentText,
		ImageURL:    input.ImageURL,
	})
	o.recordStage(StageInferring, stageStart)
	if err != nil {
		return StageInferring, err
	}

	stageStart = time.Now()
	derived, err := o.derive(ctx, input, scores)
	o.recordStage(StageDeriving, stageStart)
	if err != nil {
		return StageDeriving, err
	}

	verdict, explanation := resolveVerdict(input, derived)
	result := &message.AnalysisResult{
		ContentHash: input.ContentHash,
		SourceID:    input.SourceID,
		Verdict:     verdict,
		Explanation: explanation,
		Scores: message.Scores{
			Fakeness:       scores.Fakeness,
			Emotion:        scores.Emotion,
			VisualArtifact: scores.VisualArtifact,
		},
		DerivedFacts:       derived.Strings(),
		InferenceLatencyMS: scores.Latency.Milliseconds(),
		ProcessedAt:        time.Now().UTC(),
	}

	stageStart = time.Now()
	data, err := message.EncodeResult(result)
	o.recordStage(StageEncoding, stageStart)
	if err != nil {
		return StageEncoding, err
	}

	stageStart = time.Now()
	err = o.publish(ctx, o.cfg.ResultSubject, data, "result-"+input.ContentHash)
	o.recordStage(StagePublishing, stageStart)
	if err != nil {
		return StagePublishing, err
	}

	o.record(metric.SampleResultPublished, 1, nil)
	return StagePublishing, nil
}

// derive gathers source facts and evaluates the rule program
func (o *Orchestrator) derive(
	ctx context.Context, input *message.AnalysisInput, scores *inference.Result,
) (*rules.FactSet, error) {
	sourceFacts, err := o.deps.Context.SourceFacts(ctx, input.SourceID)
	if err != nil {
		return nil, fmt.Errorf("source context for %s: %w", input.SourceID, err)
	}

	facts, err := buildFacts(input, scores, sourceFacts, o.cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	deriveCtx, cancel := context.WithTimeout(ctx, o.cfg.RuleTimeout)
	defer cancel()
	return o.deps.Evaluator.Evaluate(deriveCtx, facts)
}

// publish sends a payload with its deduplication ID under the publish
// timeout
func (o *Orchestrator) publish(ctx context.Context, subject string, data []byte, msgID string) error {
	pubCtx, cancel := context.WithTimeout(ctx, o.cfg.PublishTimeout)
	defer cancel()
	return o.deps.Publisher.Publish(pubCtx, subject, data, msgID)
}

// acknowledge completes a successfully processed delivery
func (o *Orchestrator) acknowledge(delivery Delivery, logger *slog.Logger) {
	if err := delivery.Ack(); err != nil {
		logger.Warn("Ack failed, broker will redeliver", "error", err)
		o.record(metric.SampleOutcome, 1, map[string]string{"outcome": metric.OutcomeRedelivered})
		return
	}
	o.record(metric.SampleOutcome, 1, map[string]string{"outcome": metric.OutcomeAcknowledged})
}

// redeliver hands a delivery back to the broker for prompt retry
func (o *Orchestrator) redeliver(delivery Delivery, logger *slog.Logger) {
	if err := delivery.Nak(0); err != nil {
		logger.Warn("Nak failed, broker will redeliver after ack wait", "error", err)
	}
	o.record(metric.SampleOutcome, 1, map[string]string{"outcome": metric.OutcomeRedelivered})
}

// deadLetter publishes a dead letter record, then acknowledges the
// original so it stops redelivering. A failed record publish leaves
// the original unacknowledged so nothing is lost.
func (o *Orchestrator) deadLetter(
	ctx context.Context, delivery Delivery,
	contentHash string, stage Stage, class failureClass,
	cause error, attempts int,
) {
	record := &DeadLetter{
		ContentHash: contentHash,
		Subject:     delivery.Subject(),
		Stage:       stage.String(),
		Class:       class.String(),
		Reason:      cause.Error(),
		Attempts:    attempts,
		Payload:     delivery.Data(),
		FailedAt:    time.Now().UTC(),
	}

	data, err := record.encode()
	if err != nil {
		o.logger.Error("Dead letter encode failed", "error", err)
		o.redeliver(delivery, o.logger)
		return
	}

	msgID := "dlq-" + contentHash
	if contentHash == "" {
		msgID = "dlq-" + uuid.NewString()
	}

	if err := o.publish(ctx, o.cfg.DeadLetterSubject, data, msgID); err != nil {
		o.logger.Error("Dead letter publish failed, leaving event for redelivery",
			"stage", stage.String(), "error", err)
		o.redeliver(delivery, o.logger)
		return
	}

	if err := delivery.Ack(); err != nil {
		o.logger.Warn("Ack after dead letter failed", "error", err)
	}

	o.record(metric.SampleDeadLettered, 1, map[string]string{
		"stage": stage.String(),
		"class": class.String(),
	})
	o.record(metric.SampleOutcome, 1, map[string]string{"outcome": metric.OutcomeDeadLettered})
	o.logger.Info("Event dead lettered",
		"content_hash", contentHash, "stage", stage.String(),
		"class", class.String(), "attempts", attempts)
}

// recordStage emits a stage duration sample
func (o *Orchestrator) recordStage(stage Stage, start time.Time) {
	o.record(metric.SampleStageDuration, time.Since(start).Seconds(),
		map[string]string{"stage": stage.String()})
}

// record emits a sample if a sink is configured
func (o *Orchestrator) record(name string, value float64, tags map[string]string) {
	if o.deps.Sink == nil {
		return
	}
	o.deps.Sink.Record(name, value, tags)
}
