package worker

import "context"

// Provider loads inference pipelines. Concrete implementations live under
// internal/provider.
type Provider interface {
	// Load fetches and initializes a pipeline of the given kind for modelRef.
	// OnProgress, when set, must be called from the goroutine running Load
	// and never after Load returns.
	Load(ctx context.Context, kind, modelRef string, opts LoadOptions) (Pipeline, error)
}

// Pipeline runs one kind of model on text.
type Pipeline interface {
	// Invoke runs the model. The result must be JSON-encodable into one of
	// the per-task output shapes.
	Invoke(ctx context.Context, text string, opts InvokeOptions) (any, error)
	// Close releases any resources associated with the pipeline.
	Close() error
}

// LoadOptions configures a pipeline load.
type LoadOptions struct {
	Quantized  bool
	OnProgress func(ProgressEvent)
}

// ProgressEvent is emitted by providers while fetching pipeline artifacts.
type ProgressEvent struct {
	// Status is "initiate", "download", "progress", "done" or "ready".
	Status string
	File   string
	// Progress in [0, 100].
	Progress float64
	Loaded   int64
	Total    int64
}

// InvokeOptions are the generation/classification parameters passed to a
// pipeline. Zero values mean "provider default".
type InvokeOptions struct {
	AggregationStrategy string
	TopK                int
	MaxNewTokens        int
	MinNewTokens        int
	NumBeams            int
	LengthPenalty       float64
	DoSample            bool
}
