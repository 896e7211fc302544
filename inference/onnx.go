package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

// featureDim is the input vector width expected by the scoring model
const featureDim = 128

// outputDim is the number of scores the model emits
const outputDim = 3

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initORT initializes the shared onnxruntime environment once per process
func initORT(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// Config holds the settings for the ONNX engine
type Config struct {
	// ModelPath is the filesystem path to the .onnx model file.
	ModelPath string

	// LibraryPath optionally points at the onnxruntime shared library.
	// When empty the platform default is used.
	LibraryPath string

	// Timeout bounds a single Predict call.
	Timeout time.Duration

	// MaxSessions caps concurrent model invocations.
	MaxSessions int
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive, got %d", c.MaxSessions)
	}
	return nil
}

// sessionRunner executes one forward pass over a feature vector
type sessionRunner interface {
	run(features []float32) ([]float32, error)
	destroy() error
}

// ONNXEngine scores content with an ONNX model through onnxruntime
type ONNXEngine struct {
	cfg    Config
	runner sessionRunner

	// slots bounds concurrent model invocations
	slots chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewONNXEngine loads the model and prepares a bounded session pool
func NewONNXEngine(cfg Config) (*ONNXEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &InferenceError{Kind: KindInvalidInput, Err: err}
	}

	if err := initORT(cfg.LibraryPath); err != nil {
		return nil, &InferenceError{
			Kind: KindModelUnavailable,
			Err:  fmt.Errorf("initialize onnxruntime: %w", err),
		}
	}

	runner, err := newORTRunner(cfg.ModelPath)
	if err != nil {
		return nil, &InferenceError{
			Kind: KindModelUnavailable,
			Err:  fmt.Errorf("load model %s: %w", cfg.ModelPath, err),
		}
	}

	return &ONNXEngine{
		cfg:    cfg,
		runner: runner,
		slots:  make(chan struct{}, cfg.MaxSessions),
	}, nil
}

// Predict scores one request. Invocations beyond MaxSessions wait for a
// slot; the wait and the forward pass share the Timeout budget.
func (e *ONNXEngine) Predict(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.ContentText == "" {
		return nil, &InferenceError{
			Kind: KindInvalidInput,
			Err:  fmt.Errorf("request has no content text"),
		}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, &InferenceError{
			Kind: KindModelUnavailable,
			Err:  fmt.Errorf("engine is closed"),
		}
	}
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, &InferenceError{
			Kind: KindTimeout,
			Err:  fmt.Errorf("waiting for model slot: %w", ctx.Err()),
		}
	}

	start := time.Now()
	features := featurize(req, featureDim)

	type runOutput struct {
		scores []float32
		err    error
	}
	done := make(chan runOutput, 1)

	go func() {
		// The goroutine owns the slot so a timed-out caller does not
		// free capacity while the model is still running.
		defer func() { <-e.slots }()
		scores, err := e.runner.run(features)
		done <- runOutput{scores: scores, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, &InferenceError{
				Kind: KindModelUnavailable,
				Err:  fmt.Errorf("model run: %w", out.err),
			}
		}
		if len(out.scores) < outputDim {
			return nil, &InferenceError{
				Kind: KindModelUnavailable,
				Err:  fmt.Errorf("model emitted %d outputs, expected %d", len(out.scores), outputDim),
			}
		}
		result := &Result{
			Fakeness: clampScore(out.scores[0]),
			Emotion:  clampScore(out.scores[1]),
			Latency:  time.Since(start),
		}
		if req.ImageURL != "" {
			result.VisualArtifact = clampScore(out.scores[2])
		}
		return result, nil
	case <-ctx.Done():
		return nil, &InferenceError{
			Kind: KindTimeout,
			Err:  fmt.Errorf("model run exceeded %v: %w", e.cfg.Timeout, ctx.Err()),
		}
	}
}

// Close releases the model session
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.runner.destroy()
}

// clampScore bounds a model output to [0, 1]
func clampScore(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ortRunner drives a DynamicAdvancedSession over the loaded model
type ortRunner struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

func newORTRunner(modelPath string) (*ortRunner, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model signature: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model has no usable inputs or outputs")
	}

	inputNames := make([]string, len(inputs))
	for i, info := range inputs {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputs))
	for i, info := range outputs {
		outputNames[i] = info.Name
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ortRunner{
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

func (r *ortRunner) run(features []float32) ([]float32, error) {
	inputShape := ort.NewShape(1, int64(len(features)))
	inputTensor, err := ort.NewTensor(inputShape, features)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, outputDim))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	r.mu.Lock()
	err = r.session.Run(
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
	)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}

	data := outputTensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (r *ortRunner) destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}
	err := r.session.Destroy()
	r.session = nil
	return err
}
