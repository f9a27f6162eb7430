// Package reconcile aligns entity spans reported by a token-classification
// pipeline with the text they were extracted from.
//
// Pipelines regularly return missing, collapsed or shifted offsets. Reconcile
// keeps the spans it can trust, repairs degenerate ones by searching for the
// entity's surface word, and drops the rest, so that the resulting fragments
// always tile the original text exactly.
package reconcile

import (
	"sort"
	"strings"
	"unicode/utf8"

	"nlpd/pkg/types"
)

type (
	Fragment = types.Fragment
	Drop     = types.DroppedEntity
)

// Normalized entity labels.
const (
	LabelPerson   = "PERSON"
	LabelOrg      = "ORG"
	LabelLocation = "LOCATION"
	LabelMisc     = "MISC"
)

// Drop reasons.
const (
	ReasonNoWord   = "degenerate offsets and no word"
	ReasonNotFound = "word not found at or after cursor"
	ReasonOverlap  = "span starts before previous entity end"
)

// Result is the outcome of a reconciliation.
type Result struct {
	Fragments []Fragment `json:"fragments"`
	Dropped   []Drop     `json:"dropped,omitempty"`
}

// Reconcile splits text into plain and entity fragments. Offsets are rune
// offsets. The input slice is not modified.
func Reconcile(text string, entities []types.RawEntity) Result {
	rs := []rune(text)
	sorted := make([]types.RawEntity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return startOrZero(sorted[i]) < startOrZero(sorted[j])
	})

	var res Result
	cursor := 0
	for _, e := range sorted {
		word := strings.TrimSpace(e.Word)
		start, end, ok := trustedSpan(e, len(rs))
		if !ok {
			if word == "" {
				res.Dropped = append(res.Dropped, Drop{Entity: e, Reason: ReasonNoWord})
				continue
			}
			idx := indexRunes(rs, word, cursor)
			if idx < 0 {
				if loose := indexRunes(rs, word, 0); loose >= cursor {
					idx = loose
				}
			}
			if idx < 0 {
				res.Dropped = append(res.Dropped, Drop{Entity: e, Reason: ReasonNotFound})
				continue
			}
			start, end = idx, idx+utf8.RuneCountInString(word)
		}
		if start < cursor {
			res.Dropped = append(res.Dropped, Drop{Entity: e, Reason: ReasonOverlap})
			continue
		}
		if start > cursor {
			res.Fragments = append(res.Fragments, plain(rs, cursor, start))
		}
		res.Fragments = append(res.Fragments, Fragment{
			Kind:  types.FragmentEntity,
			Text:  string(rs[start:end]),
			Start: start,
			End:   end,
			Label: Label(e.EntityGroup),
			Score: e.Score,
			Word:  word,
		})
		cursor = end
	}
	if cursor < len(rs) {
		res.Fragments = append(res.Fragments, plain(rs, cursor, len(rs)))
	}
	return res
}

// Label maps a raw entity group to one of the four display labels by
// substring match on the upper-cased group.
func Label(group string) string {
	g := strings.ToUpper(group)
	if g == "" {
		g = LabelMisc
	}
	switch {
	case strings.Contains(g, "PER"):
		return LabelPerson
	case strings.Contains(g, "ORG"):
		return LabelOrg
	case strings.Contains(g, "LOC"):
		return LabelLocation
	default:
		return LabelMisc
	}
}

// Spans returns the entity fragments only.
func (r Result) Spans() []Fragment {
	var out []Fragment
	for _, f := range r.Fragments {
		if f.Kind == types.FragmentEntity {
			out = append(out, f)
		}
	}
	return out
}

// Text concatenates all fragments. It always equals the reconciled input.
func (r Result) Text() string {
	var b strings.Builder
	for _, f := range r.Fragments {
		b.WriteString(f.Text)
	}
	return b.String()
}

func startOrZero(e types.RawEntity) int {
	if e.Start == nil {
		return 0
	}
	return *e.Start
}

// trustedSpan returns the entity's offsets when they describe a non-empty,
// in-range span.
func trustedSpan(e types.RawEntity, n int) (int, int, bool) {
	if e.Start == nil || e.End == nil {
		return 0, 0, false
	}
	s, en := *e.Start, *e.End
	if s == en || s < 0 || en < s || en > n {
		return 0, 0, false
	}
	return s, en, true
}

func indexRunes(rs []rune, word string, from int) int {
	if from > len(rs) {
		return -1
	}
	hay := string(rs[from:])
	i := strings.Index(hay, word)
	if i < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(hay[:i])
}

func plain(rs []rune, from, to int) Fragment {
	return Fragment{Kind: types.FragmentText, Text: string(rs[from:to]), Start: from, End: to}
}
