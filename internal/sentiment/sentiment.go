// Package sentiment turns raw sentiment output into display-ready values.
package sentiment

import (
	"regexp"
	"sort"
	"strings"

	"nlpd/pkg/types"
)

// PositiveLabel is the label sentiment pipelines use for positive text.
const PositiveLabel = "POSITIVE"

var (
	positive = wordSet(
		"good", "great", "excellent", "amazing", "love", "best", "fantastic", "wonderful",
		"beautiful", "happy", "joy", "improves", "significantly", "perfect", "awesome", "nice",
		"clean", "efficient", "fast", "secure", "better", "rich", "easy", "smart", "secured", "success",
	)
	negative = wordSet(
		"bad", "terrible", "awful", "hate", "worst", "horrible", "sad", "poor", "sparse", "steep",
		"difficult", "slow", "broken", "error", "fail", "failure", "ugly", "messy", "hard", "complex",
		"boring", "weak", "insecure", "vulnerable", "problem", "issue",
	)

	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = strings.NewReplacer(".", "", ",", "", "!", "", "?", "", ";", "", ":", "")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Verdict sorts scores by descending score and picks the dominant label.
// It returns false when there are no scores.
func Verdict(scores []types.SentimentScore) (types.SentimentVerdict, bool) {
	if len(scores) == 0 {
		return types.SentimentVerdict{}, false
	}
	sorted := make([]types.SentimentScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return types.SentimentVerdict{
		Dominant: sorted[0],
		Positive: sorted[0].Label == PositiveLabel,
		Scores:   sorted,
	}, true
}

// Percent rounds a score in [0, 1] to a whole percentage.
func Percent(score float64) int {
	return int(score*100 + 0.5)
}

// Triggers splits text on whitespace, keeping the delimiters as their own
// tokens, and tags tokens found in the sentiment dictionaries.
func Triggers(text string) []types.Trigger {
	if text == "" {
		return nil
	}
	var out []types.Trigger
	last := 0
	for _, loc := range whitespace.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			out = append(out, classify(text[last:loc[0]]))
		}
		out = append(out, types.Trigger{Text: text[loc[0]:loc[1]]})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, classify(text[last:]))
	}
	return out
}

// Polarity classifies a single word.
func Polarity(word string) types.TriggerPolarity {
	w := punctuation.Replace(strings.ToLower(word))
	if _, ok := positive[w]; ok {
		return types.TriggerPositive
	}
	if _, ok := negative[w]; ok {
		return types.TriggerNegative
	}
	return types.TriggerNone
}

func classify(tok string) types.Trigger {
	return types.Trigger{Text: tok, Polarity: Polarity(tok)}
}
