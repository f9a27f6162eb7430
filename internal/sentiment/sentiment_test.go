package sentiment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlpd/internal/registry"
	"nlpd/pkg/types"
)

func TestVerdictSortsAndPicksDominant(t *testing.T) {
	in := []types.SentimentScore{{Label: "NEGATIVE", Score: 0.12}, {Label: "POSITIVE", Score: 0.88}}
	v, ok := Verdict(in)
	require.True(t, ok)
	assert.True(t, v.Positive)
	assert.Equal(t, "POSITIVE", v.Dominant.Label)
	assert.Equal(t, "NEGATIVE", v.Scores[1].Label)
	// input untouched
	assert.Equal(t, "NEGATIVE", in[0].Label)
	assert.Equal(t, 88, Percent(v.Dominant.Score))

	v, ok = Verdict([]types.SentimentScore{{Label: "NEGATIVE", Score: 0.7}})
	require.True(t, ok)
	assert.False(t, v.Positive)

	_, ok = Verdict(nil)
	assert.False(t, ok)
}

func TestTriggersKeepDelimiters(t *testing.T) {
	text := "The new framework significantly improves  performance.\nDocs are sparse!"
	toks := Triggers(text)

	var b strings.Builder
	for _, tk := range toks {
		b.WriteString(tk.Text)
	}
	assert.Equal(t, text, b.String())

	got := map[string]types.TriggerPolarity{}
	for _, tk := range toks {
		if tk.Polarity != types.TriggerNone {
			got[tk.Text] = tk.Polarity
		}
	}
	assert.Equal(t, map[string]types.TriggerPolarity{
		"significantly": types.TriggerPositive,
		"improves":      types.TriggerPositive,
		"sparse!":       types.TriggerNegative,
	}, got)
}

func TestTriggersOnPreset(t *testing.T) {
	var neg []string
	for _, tk := range Triggers(registry.Preset(types.TaskSentiment)) {
		if tk.Polarity == types.TriggerNegative {
			neg = append(neg, tk.Text)
		}
	}
	assert.Equal(t, []string{"sparse", "steep"}, neg)
}

func TestPolarity(t *testing.T) {
	assert.Equal(t, types.TriggerPositive, Polarity("GREAT,"))
	assert.Equal(t, types.TriggerNegative, Polarity("issue?"))
	assert.Equal(t, types.TriggerNone, Polarity("framework"))
	assert.Empty(t, Triggers(""))
}
