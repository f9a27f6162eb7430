package router

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlpd/pkg/types"
)

func TestShortNeutralTextPicksSentiment(t *testing.T) {
	cases := []string{
		"the weather is mild today",
		"x",
		"I think the release went out on tuesday and nobody noticed.",
		strings.Repeat("a ", 25),
	}
	for _, text := range cases {
		require.LessOrEqual(t, utf8.RuneCountInString(text), 300)
		s := Suggest(text, types.TaskNER)
		assert.Equal(t, types.TaskSentiment, s.Task, "text %q", text)
		assert.True(t, s.Switch)
		assert.Equal(t, "Short, opinionated text detected. Keeping Sentiment Analysis.", s.Reason)
	}
}

func TestArticleSuggestsSummarization(t *testing.T) {
	sentence := "the committee reviewed the annual report and discussed several proposals for next year. "
	text := strings.Repeat(sentence, 11)
	require.Greater(t, utf8.RuneCountInString(text), 800)

	s := Suggest(text, types.TaskSentiment)
	assert.Equal(t, types.TaskSummarization, s.Task)
	assert.True(t, s.Switch)
	assert.Equal(t, 30, s.Scores.Summarization)
	assert.Contains(t, s.Reason, "(143 words)")
	assert.Equal(t, s.Reason, s.Message())
}

func TestVeryLongTextWithDenseEntitiesStaysSummarization(t *testing.T) {
	// NER tops out at 15 points, so it can never beat the 30 a >800 char
	// text earns for summarization.
	text := strings.Repeat("Alice met Bob in Paris with Carol and Dave. ", 20)
	require.Greater(t, utf8.RuneCountInString(text), 800)

	s := Suggest(text, types.TaskNER)
	assert.Equal(t, 15, s.Scores.NER)
	assert.Equal(t, types.TaskSummarization, s.Task)
}

func TestVeryLongTextSaturatedWithKeywords(t *testing.T) {
	// Boundary: 13 or more keywords give sentiment 5+2k >= 31 points, beating
	// summarization's 30 even on long text.
	filler := strings.Repeat("and so the story went on for a while ", 22)
	text := filler + strings.Repeat("good ", 13)
	require.Greater(t, utf8.RuneCountInString(text), 800)

	s := Suggest(text, types.TaskSummarization)
	assert.Equal(t, 31, s.Scores.Sentiment)
	assert.Equal(t, types.TaskSentiment, s.Task)

	s = Suggest(filler+strings.Repeat("good ", 12), types.TaskSummarization)
	assert.Equal(t, types.TaskSummarization, s.Task)
	assert.False(t, s.Switch)
}

func TestEntityDensePicksNER(t *testing.T) {
	text := "Elon Musk announced that SpaceX plans to launch the Starship rocket from Boca Chica, Texas next month."
	s := Suggest(text, types.TaskSentiment)
	assert.Equal(t, types.TaskNER, s.Task)
	assert.Equal(t, 15, s.Scores.NER)
	assert.Equal(t, 5, s.Scores.Sentiment)
	assert.Equal(t, "High density of potential entities detected. Switching to Entity Recognition.", s.Reason)
}

func TestSentenceStartsAreNotCandidates(t *testing.T) {
	assert.Equal(t, 0, candidates("one. Two. Three. Four. Five."))
	// Start of text is not preceded by ". " and counts.
	assert.Equal(t, 1, candidates("Hello there."))
	// Mixed-case tokens fail the word boundary at the inner capital.
	assert.Equal(t, 0, candidates("SpaceX NASA"))
	assert.Equal(t, 3, candidates("met Alice.Bob and Carol. Dave"))
}

func TestKeywordsMatchWholeTokensOnly(t *testing.T) {
	assert.Equal(t, 2, keywordHits(strings.Fields("GOOD food, Great")))
	assert.Equal(t, 0, keywordHits(strings.Fields("good! goodness")))

	s := Suggest("I love it", types.TaskSentiment)
	assert.Equal(t, 5+5+2, s.Scores.Sentiment)
}

func TestMessageWhenAlreadyOptimal(t *testing.T) {
	s := Suggest("this is great", types.TaskSentiment)
	assert.False(t, s.Switch)
	assert.Equal(t,
		"Current model is already optimal for this context. (Short, opinionated text detected. Keeping Sentiment Analysis.)",
		s.Message())
}

func TestLengthCountsRunes(t *testing.T) {
	s := Suggest("héllo wörld", types.TaskSentiment)
	assert.Equal(t, 11, s.Length)
	assert.Equal(t, 2, s.WordCount)
}
