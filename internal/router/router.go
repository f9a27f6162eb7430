// Package router suggests the task best suited to a piece of text using
// cheap lexical heuristics.
package router

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"nlpd/pkg/types"
)

const (
	longTextChars     = 300
	longTextWords     = 50
	veryLongTextChars = 800
	entityDensity     = 0.07
	minEntities       = 3
)

// properNoun matches capitalized words. Matches directly after ". " are
// sentence starts and are filtered out by candidates.
var properNoun = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

var sentimentKeywords = map[string]struct{}{
	"good": {}, "bad": {}, "great": {}, "terrible": {},
	"love": {}, "hate": {}, "amazing": {}, "awful": {},
	"best": {}, "worst": {}, "excellent": {}, "poor": {},
}

// Suggest scores text for each task and picks one. Callers must reject blank
// text before calling.
func Suggest(text string, active types.TaskID) Suggestion {
	words := strings.Fields(text)
	n := len(words)
	length := utf8.RuneCountInString(text)

	var sc types.Scores
	if length > longTextChars || n > longTextWords {
		sc.Summarization += 10
	}
	if length > veryLongTextChars {
		sc.Summarization += 20
	}

	entities := candidates(text)
	if float64(entities)/float64(max(n, 1)) > entityDensity {
		sc.NER += 10
	}
	if entities > minEntities {
		sc.NER += 5
	}

	if length < longTextChars {
		sc.Sentiment += 5
	}
	if k := keywordHits(words); k > 0 {
		sc.Sentiment += 5 + 2*k
	}

	s := Suggestion{Suggestion: types.Suggestion{Scores: sc, WordCount: n, Length: length}}
	switch {
	case sc.Summarization >= sc.NER && sc.Summarization > sc.Sentiment:
		s.Task = types.TaskSummarization
		s.Reason = fmt.Sprintf("Long text detected (%d words). Switching to Summarization model.", n)
	case sc.NER > sc.Summarization && sc.NER > sc.Sentiment:
		s.Task = types.TaskNER
		s.Reason = "High density of potential entities detected. Switching to Entity Recognition."
	default:
		s.Task = types.TaskSentiment
		s.Reason = "Short, opinionated text detected. Keeping Sentiment Analysis."
	}
	s.Switch = s.Task != active
	return s
}

// Suggestion wraps the wire suggestion with display helpers.
type Suggestion struct {
	types.Suggestion
}

// Message is the notification shown to the user.
func (s Suggestion) Message() string {
	if s.Switch {
		return s.Reason
	}
	return fmt.Sprintf("Current model is already optimal for this context. (%s)", s.Reason)
}

func candidates(text string) int {
	count := 0
	for _, loc := range properNoun.FindAllStringIndex(text, -1) {
		if loc[0] >= 2 && text[loc[0]-2:loc[0]] == ". " {
			continue
		}
		count++
	}
	return count
}

func keywordHits(words []string) int {
	k := 0
	for _, w := range words {
		if _, ok := sentimentKeywords[strings.ToLower(w)]; ok {
			k++
		}
	}
	return k
}
