package offline

import (
	"context"
	"regexp"
	"strings"

	"nlpd/internal/worker"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

const defaultMaxWords = 150

type summaryPipeline struct{}

// Invoke returns the lead sentences of text: at least MinNewTokens words
// when available, never more than MaxNewTokens words.
func (summaryPipeline) Invoke(ctx context.Context, text string, opts worker.InvokeOptions) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	maxWords := opts.MaxNewTokens
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}
	minWords := max(opts.MinNewTokens, 1)

	var words []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if len(words) >= minWords {
			break
		}
		words = append(words, strings.Fields(s)...)
	}
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return []map[string]string{{"summary_text": strings.Join(words, " ")}}, nil
}

func (summaryPipeline) Close() error { return nil }
