package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlpd/pkg/types"
)

func TestDefaultProfiles(t *testing.T) {
	r := Default()
	assert.Equal(t, []types.TaskID{types.TaskSentiment, types.TaskNER, types.TaskSummarization}, r.IDs())

	p, ok := r.Lookup(types.TaskNER)
	require.True(t, ok)
	assert.Equal(t, "Xenova/bert-base-NER", p.ModelRef)
	assert.Equal(t, "token-classification", p.PipelineKind)
	assert.True(t, p.Quantized)
	assert.Equal(t, uint64(100_000_000), p.EstimatedBytes)

	s := r.MustLookup(types.TaskSummarization)
	assert.Equal(t, "summarization", s.PipelineKind)
	assert.Equal(t, "Xenova/distilbart-cnn-6-6", s.ModelRef)

	_, ok = r.Lookup("translation")
	assert.False(t, ok)
}

func TestAllReturnsCopy(t *testing.T) {
	r := Default()
	all := r.All()
	require.Len(t, all, 3)
	all[0].ModelRef = "mutated"
	assert.Equal(t, "Xenova/distilbert-base-uncased-finetuned-sst-2-english", r.MustLookup(types.TaskSentiment).ModelRef)
}

func TestMustLookupPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { Default().MustLookup("nope") })
}

func TestOverrides(t *testing.T) {
	f := false
	r, err := New(map[types.TaskID]Override{
		types.TaskSentiment: {ModelRef: "acme/sst2-tiny", Quantized: &f},
		types.TaskNER:       {},
	})
	require.NoError(t, err)
	p := r.MustLookup(types.TaskSentiment)
	assert.Equal(t, "acme/sst2-tiny", p.ModelRef)
	assert.False(t, p.Quantized)
	assert.Equal(t, "Xenova/bert-base-NER", r.MustLookup(types.TaskNER).ModelRef)
}

func TestOverrideErrors(t *testing.T) {
	_, err := New(map[types.TaskID]Override{"translation": {ModelRef: "x"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOverride))
	assert.True(t, errors.Is(err, types.ErrUnknownTask))

	_, err = New(map[types.TaskID]Override{types.TaskNER: {ModelRef: "   "}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOverride))
}

func TestSwapPreset(t *testing.T) {
	sent := Preset(types.TaskSentiment)
	ner := Preset(types.TaskNER)
	require.NotEmpty(t, sent)
	require.NotEmpty(t, ner)

	assert.Equal(t, ner, SwapPreset(sent, types.TaskSentiment, types.TaskNER))
	assert.Equal(t, ner, SwapPreset("", types.TaskSentiment, types.TaskNER))
	assert.Equal(t, "my own text", SwapPreset("my own text", types.TaskSentiment, types.TaskNER))
	// Preset of a task other than the one being left counts as user text.
	assert.Equal(t, ner, SwapPreset(ner, types.TaskSentiment, types.TaskSummarization))
}
