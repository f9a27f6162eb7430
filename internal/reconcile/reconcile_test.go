package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlpd/pkg/types"
)

const elon = "Elon Musk announced that SpaceX plans to launch the Starship rocket from Boca Chica, Texas next month."

func ent(group, word string, start, end int) types.RawEntity {
	return types.RawEntity{EntityGroup: group, Word: word, Score: 0.9, Start: types.Offset(start), End: types.Offset(end)}
}

func TestCorrectOffsetsRoundTrip(t *testing.T) {
	in := []types.RawEntity{
		ent("PER", "Elon Musk", 0, 9),
		ent("ORG", "SpaceX", 25, 31),
		ent("MISC", "Starship", 52, 60),
		ent("LOC", "Boca Chica", 73, 83),
		ent("LOC", "Texas", 85, 90),
	}
	res := Reconcile(elon, in)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, elon, res.Text())

	spans := res.Spans()
	require.Len(t, spans, len(in))
	for i, sp := range spans {
		assert.Equal(t, *in[i].Start, sp.Start)
		assert.Equal(t, *in[i].End, sp.End)
		assert.Equal(t, in[i].Word, sp.Text)
	}
	assert.Equal(t, []string{LabelPerson, LabelOrg, LabelMisc, LabelLocation, LabelLocation},
		[]string{spans[0].Label, spans[1].Label, spans[2].Label, spans[3].Label, spans[4].Label})
}

func TestElonMuskScenarioWithBrokenOffsets(t *testing.T) {
	// Out-of-order input, collapsed and missing offsets as WASM bindings
	// tend to produce.
	in := []types.RawEntity{
		{EntityGroup: "LOC", Word: "Texas", Score: 0.99},
		ent("B-PER", " Elon Musk ", 0, 0),
		ent("ORG", "SpaceX", 25, 31),
		{EntityGroup: "MISC", Word: "Starship", Start: types.Offset(52)},
		ent("LOC", "Boca Chica", 73, 83),
	}
	res := Reconcile(elon, in)

	// Texas sorts first (missing start counts as 0) and is placed by search,
	// which moves the cursor past every other entity; everything after it is
	// dropped as overlapping.
	assert.Equal(t, elon, res.Text())
	spans := res.Spans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "Texas", spans[0].Text)
	assert.Len(t, res.Dropped, 4)
}

func TestElonMuskScenarioPipelineShape(t *testing.T) {
	// Offsets absent entirely, order of appearance preserved.
	in := []types.RawEntity{
		{EntityGroup: "PER", Word: "Elon Musk"},
		{EntityGroup: "ORG", Word: "SpaceX"},
		{EntityGroup: "MISC", Word: "Starship"},
		{EntityGroup: "LOC", Word: "Boca Chica"},
		{EntityGroup: "LOC", Word: "Texas"},
	}
	res := Reconcile(elon, in)
	require.Empty(t, res.Dropped)
	assert.Equal(t, elon, res.Text())

	spans := res.Spans()
	require.Len(t, spans, 5)
	prev := -1
	for _, sp := range spans {
		assert.Greater(t, sp.Start, prev)
		assert.Equal(t, sp.Word, sp.Text)
		prev = sp.Start
	}
	assert.Equal(t, LabelPerson, spans[0].Label)
	assert.Equal(t, LabelOrg, spans[1].Label)
	assert.Equal(t, LabelLocation, spans[3].Label)
	assert.Equal(t, LabelLocation, spans[4].Label)
}

func TestDegenerateOffsetsRecovered(t *testing.T) {
	text := "We met Ada Lovelace in London."
	res := Reconcile(text, []types.RawEntity{ent("PER", "Ada Lovelace", 4, 4)})
	spans := res.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "Ada Lovelace", spans[0].Text)
	assert.Equal(t, 7, spans[0].Start)
	assert.Equal(t, 19, spans[0].End)
}

func TestMissingWordDroppedCursorUnchanged(t *testing.T) {
	text := "Paris and Berlin are capitals."
	res := Reconcile(text, []types.RawEntity{
		ent("LOC", "Paris", 0, 5),
		{EntityGroup: "LOC", Word: "Madrid", Start: types.Offset(6), End: types.Offset(6)},
		ent("LOC", "Berlin", 10, 16),
	})
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "Madrid", res.Dropped[0].Entity.Word)
	assert.Equal(t, ReasonNotFound, res.Dropped[0].Reason)

	spans := res.Spans()
	require.Len(t, spans, 2)
	assert.Equal(t, "Berlin", spans[1].Text)
	assert.Equal(t, text, res.Text())
}

func TestEmptyWordWithBadOffsetsDropped(t *testing.T) {
	res := Reconcile("abc", []types.RawEntity{{EntityGroup: "PER", Word: "  "}})
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, ReasonNoWord, res.Dropped[0].Reason)
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, types.FragmentText, res.Fragments[0].Kind)
}

func TestOverlappingSpanDropped(t *testing.T) {
	text := "New York City"
	res := Reconcile(text, []types.RawEntity{
		ent("LOC", "New York", 0, 8),
		ent("LOC", "York City", 4, 13),
	})
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, ReasonOverlap, res.Dropped[0].Reason)
	assert.Equal(t, text, res.Text())
}

func TestOutOfRangeAndReversedOffsetsSearched(t *testing.T) {
	text := "hello Bob"
	res := Reconcile(text, []types.RawEntity{ent("PER", "Bob", 40, 43)})
	require.Len(t, res.Spans(), 1)
	assert.Equal(t, 6, res.Spans()[0].Start)

	res = Reconcile(text, []types.RawEntity{ent("PER", "Bob", 9, 6)})
	require.Len(t, res.Spans(), 1)
	assert.Equal(t, "Bob", res.Spans()[0].Text)
}

func TestRuneOffsets(t *testing.T) {
	text := "Café owner Zoë lives in Zürich"
	res := Reconcile(text, []types.RawEntity{
		{EntityGroup: "PER", Word: "Zoë"},
		ent("LOC", "Zürich", 24, 30),
	})
	spans := res.Spans()
	require.Len(t, spans, 2)
	assert.Equal(t, 11, spans[0].Start)
	assert.Equal(t, 14, spans[0].End)
	assert.Equal(t, "Zürich", spans[1].Text)
	assert.Equal(t, text, res.Text())
}

func TestNoEntities(t *testing.T) {
	res := Reconcile("plain", nil)
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, "plain", res.Fragments[0].Text)
	assert.Empty(t, Reconcile("", nil).Fragments)
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"PER": LabelPerson, "b-per": LabelPerson, "I-ORG": LabelOrg,
		"LOC": LabelLocation, "MISC": LabelMisc, "": LabelMisc, "DATE": LabelMisc,
	}
	for in, want := range cases {
		assert.Equal(t, want, Label(in), in)
	}
}

func TestRawEntityToleratesBadOffsets(t *testing.T) {
	var got []types.RawEntity
	payload := `[{"entity_group":"PER","word":"Bob","score":0.5,"start":"x","end":3.5},
		{"entity":"B-LOC","word":"Oslo","start":4.0,"end":8}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Start)
	assert.Nil(t, got[0].End)
	assert.Equal(t, "B-LOC", got[1].EntityGroup)
	require.NotNil(t, got[1].Start)
	assert.Equal(t, 4, *got[1].Start)
}
