// Package offline is a pure-Go heuristic provider. It needs no network or
// model weights and is meant for development, demos and tests; its outputs
// follow the shapes real pipelines produce.
package offline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"nlpd/internal/sentiment"
	"nlpd/internal/worker"
	"nlpd/pkg/types"
)

// Provider implements worker.Provider.
type Provider struct{}

func New() *Provider { return &Provider{} }

// Load returns the heuristic pipeline for kind. It reports one progress
// event for the weight file and one for the tokenizer, as a real download
// would.
func (p *Provider) Load(ctx context.Context, kind, modelRef string, opts worker.LoadOptions) (worker.Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var pl worker.Pipeline
	switch kind {
	case "sentiment-analysis", "text-classification":
		pl = sentimentPipeline{}
	case "token-classification", "ner":
		pl = nerPipeline{}
	case "summarization":
		pl = summaryPipeline{}
	default:
		return nil, fmt.Errorf("offline: unsupported pipeline kind %q", kind)
	}
	if opts.OnProgress != nil {
		weights := "onnx/model.onnx"
		if opts.Quantized {
			weights = "onnx/model_quantized.onnx"
		}
		opts.OnProgress(worker.ProgressEvent{Status: "progress", File: "tokenizer.json", Progress: 100})
		opts.OnProgress(worker.ProgressEvent{Status: "progress", File: weights, Progress: 100})
		opts.OnProgress(worker.ProgressEvent{Status: "done", File: weights, Progress: 100})
	}
	return pl, nil
}

type sentimentPipeline struct{}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Invoke scores text by lexicon hits: the positive probability is the
// logistic of (positive hits - negative hits).
func (sentimentPipeline) Invoke(ctx context.Context, text string, opts worker.InvokeOptions) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pos, neg := 0, 0
	for _, w := range strings.Fields(text) {
		switch sentiment.Polarity(w) {
		case types.TriggerPositive:
			pos++
		case types.TriggerNegative:
			neg++
		}
	}
	p := 1 / (1 + math.Exp(-1.5*float64(pos-neg)))
	out := []labelScore{{Label: "POSITIVE", Score: p}, {Label: "NEGATIVE", Score: 1 - p}}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	k := opts.TopK
	if k <= 0 {
		k = 1
	}
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (sentimentPipeline) Close() error { return nil }
