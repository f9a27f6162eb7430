// Package registry holds the immutable table of task profiles.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"nlpd/pkg/types"
)

// ErrInvalidOverride is returned when a profile override cannot be applied.
var ErrInvalidOverride = errors.New("invalid task override")

// Override replaces parts of a built-in profile. A nil Quantized keeps the
// built-in value.
type Override struct {
	ModelRef  string
	Quantized *bool
}

// Registry maps task ids to profiles. It is built once and never mutated.
type Registry struct {
	order    []types.TaskID
	profiles map[types.TaskID]types.TaskProfile
}

const mb = 1000 * 1000

var builtin = []types.TaskProfile{
	{
		ID:             types.TaskSentiment,
		Label:          "Sentiment Analysis",
		Description:    "Real-time emotional tone detection. Classifies text as Positive or Negative using DistilBERT.",
		ModelRef:       "Xenova/distilbert-base-uncased-finetuned-sst-2-english",
		PipelineKind:   "sentiment-analysis",
		Quantized:      true,
		EstimatedBytes: 67 * mb,
	},
	{
		ID:             types.TaskNER,
		Label:          "Entity Recognition",
		Description:    "Extracts entities like Persons, Organizations, and Locations using BERT-base NER.",
		ModelRef:       "Xenova/bert-base-NER",
		PipelineKind:   "token-classification",
		Quantized:      true,
		EstimatedBytes: 100 * mb,
	},
	{
		ID:             types.TaskSummarization,
		Label:          "Summarization",
		Description:    "Distills long articles into concise summaries using DistilBART CNN.",
		ModelRef:       "Xenova/distilbart-cnn-6-6",
		PipelineKind:   "summarization",
		Quantized:      true,
		EstimatedBytes: 280 * mb,
	},
}

// Default returns the registry with built-in profiles only.
func Default() *Registry {
	r, err := New(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a registry from the built-in profiles plus overrides.
func New(overrides map[types.TaskID]Override) (*Registry, error) {
	r := &Registry{profiles: make(map[types.TaskID]types.TaskProfile, len(builtin))}
	for _, p := range builtin {
		r.order = append(r.order, p.ID)
		r.profiles[p.ID] = p
	}
	for id, ov := range overrides {
		p, ok := r.profiles[id]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidOverride, types.ErrUnknownTask, id)
		}
		ref := strings.TrimSpace(ov.ModelRef)
		if ov.ModelRef != "" && ref == "" {
			return nil, fmt.Errorf("%w: empty model ref for %q", ErrInvalidOverride, id)
		}
		if ref != "" {
			p.ModelRef = ref
		}
		if ov.Quantized != nil {
			p.Quantized = *ov.Quantized
		}
		r.profiles[id] = p
	}
	return r, nil
}

// Lookup returns the profile for id.
func (r *Registry) Lookup(id types.TaskID) (types.TaskProfile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// MustLookup is Lookup for ids known to be valid; it panics otherwise.
func (r *Registry) MustLookup(id types.TaskID) types.TaskProfile {
	p, ok := r.profiles[id]
	if !ok {
		panic(fmt.Sprintf("registry: unknown task %q", id))
	}
	return p
}

// All returns a copy of the profiles in registry order.
func (r *Registry) All() []types.TaskProfile {
	out := make([]types.TaskProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id])
	}
	return out
}

func (r *Registry) IDs() []types.TaskID {
	return append([]types.TaskID(nil), r.order...)
}
