package offline

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"nlpd/internal/worker"
)

var wordToken = regexp.MustCompile(`[\p{L}\p{N}]+(?:[-'][\p{L}\p{N}]+)*`)

var (
	sentenceStopwords = toSet("The", "A", "An", "This", "That", "These", "Those", "It", "Its", "He", "She",
		"They", "We", "I", "You", "However", "But", "And", "Or", "In", "On", "At", "For", "From", "To",
		"Though", "Although", "If", "When", "While", "As", "After", "Before", "Our", "My", "Their", "His", "Her")
	orgWords = toSet("Inc", "Corp", "Corporation", "Ltd", "LLC", "Company", "Co", "Group", "University",
		"Agency", "Institute", "Bank", "Foundation", "Association", "Labs", "Technologies", "Systems")
	locWords = toSet("City", "County", "River", "Mountain", "Mountains", "Island", "Islands", "Lake",
		"Valley", "Bay", "Street", "Avenue", "Province", "Republic", "Kingdom")
	locPrepositions = toSet("in", "from", "at", "near", "to", "across", "into", "around")
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var groupScore = map[string]float64{"PER": 0.91, "ORG": 0.93, "LOC": 0.92, "MISC": 0.74}

type token struct {
	text      string
	byteStart int
	byteEnd   int
	runeStart int
	runeEnd   int
}

type span struct {
	tokens []token
	group  string
}

func (s span) word(text string) string {
	return text[s.tokens[0].byteStart:s.tokens[len(s.tokens)-1].byteEnd]
}

type nerPipeline struct{}

// Invoke spots runs of capitalized words and labels them with simple
// lexical cues. With AggregationStrategy "simple" runs are returned as
// grouped entities; otherwise one B-/I- tagged entry per token is returned.
func (nerPipeline) Invoke(ctx context.Context, text string, opts worker.InvokeOptions) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spans := spotEntities(text)
	out := make([]map[string]any, 0, len(spans))
	for _, s := range spans {
		score := groupScore[s.group]
		if opts.AggregationStrategy != "" {
			out = append(out, map[string]any{
				"entity_group": s.group,
				"score":        score,
				"word":         s.word(text),
				"start":        s.tokens[0].runeStart,
				"end":          s.tokens[len(s.tokens)-1].runeEnd,
			})
			continue
		}
		for i, tk := range s.tokens {
			prefix := "I-"
			if i == 0 {
				prefix = "B-"
			}
			out = append(out, map[string]any{
				"entity": prefix + s.group,
				"score":  score,
				"word":   tk.text,
				"start":  tk.runeStart,
				"end":    tk.runeEnd,
			})
		}
	}
	return out, nil
}

func (nerPipeline) Close() error { return nil }

func tokenize(text string) []token {
	locs := wordToken.FindAllStringIndex(text, -1)
	out := make([]token, 0, len(locs))
	bytePos, runePos := 0, 0
	for _, loc := range locs {
		runePos += utf8.RuneCountInString(text[bytePos:loc[0]])
		start := runePos
		runePos += utf8.RuneCountInString(text[loc[0]:loc[1]])
		bytePos = loc[1]
		out = append(out, token{
			text:      text[loc[0]:loc[1]],
			byteStart: loc[0],
			byteEnd:   loc[1],
			runeStart: start,
			runeEnd:   runePos,
		})
	}
	return out
}

func capitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// innerUpper reports an upper-case letter after the first rune, as in
// acronyms and brand names.
func innerUpper(s string) bool {
	_, n := utf8.DecodeRuneInString(s)
	for _, r := range s[n:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func spotEntities(text string) []span {
	toks := tokenize(text)
	lower := strings.ToLower(text)
	var spans []span
	for i := 0; i < len(toks); {
		if !capitalized(toks[i].text) {
			i++
			continue
		}
		j := i + 1
		for j < len(toks) && capitalized(toks[j].text) && text[toks[j-1].byteEnd:toks[j].byteStart] == " " {
			j++
		}
		run := toks[i:j]
		before := strings.TrimRight(text[:run[0].byteStart], " \t\n")
		sentenceStart := before == "" || strings.HasSuffix(before, ".") || strings.HasSuffix(before, "!") ||
			strings.HasSuffix(before, "?")
		if sentenceStart && len(run) == 1 {
			w := run[0].text
			_, stop := sentenceStopwords[w]
			if stop || (!innerUpper(w) && strings.Count(lower, strings.ToLower(w)) > 1) {
				i = j
				continue
			}
		}
		s := span{tokens: run}
		s.group = classify(text, run, i, toks, spans)
		spans = append(spans, s)
		i = j
	}
	return spans
}

func classify(text string, run []token, at int, toks []token, prev []span) string {
	for _, tk := range run {
		if innerUpper(tk.text) {
			return "ORG"
		}
		if _, ok := orgWords[tk.text]; ok {
			return "ORG"
		}
	}
	if _, ok := locWords[run[len(run)-1].text]; ok {
		return "LOC"
	}
	if at > 0 {
		if _, ok := locPrepositions[strings.ToLower(toks[at-1].text)]; ok {
			return "LOC"
		}
	}
	// "Boca Chica, Texas": a run right after a location and a comma.
	if n := len(prev); n > 0 && prev[n-1].group == "LOC" {
		last := prev[n-1].tokens[len(prev[n-1].tokens)-1]
		if text[last.byteEnd:run[0].byteStart] == ", " {
			return "LOC"
		}
	}
	if len(run) >= 2 {
		return "PER"
	}
	return "MISC"
}
