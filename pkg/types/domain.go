package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// TaskID identifies one of the supported NLP tasks.
type TaskID string

const (
	TaskSentiment     TaskID = "sentiment"
	TaskNER           TaskID = "ner"
	TaskSummarization TaskID = "summarization"
)

// Valid reports whether id belongs to the closed task set.
func (id TaskID) Valid() bool {
	switch id {
	case TaskSentiment, TaskNER, TaskSummarization:
		return true
	}
	return false
}

// ErrUnknownTask is returned by ParseTaskID for ids outside the task set.
var ErrUnknownTask = errors.New("unknown task")

// ParseTaskID trims and validates s.
func ParseTaskID(s string) (TaskID, error) {
	id := TaskID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
	return id, nil
}

// TaskProfile describes a task and the model that serves it.
type TaskProfile struct {
	// Task identifier.
	// example: ner
	ID TaskID `json:"id" example:"ner"`
	// Human-friendly label.
	// example: Entity Recognition
	Label string `json:"label" example:"Entity Recognition"`
	// Short description of what the task does.
	Description string `json:"description"`
	// Model reference understood by the inference provider.
	// example: Xenova/bert-base-NER
	ModelRef string `json:"model_ref" example:"Xenova/bert-base-NER"`
	// Provider pipeline kind.
	// example: token-classification
	PipelineKind string `json:"pipeline_kind" example:"token-classification"`
	// Whether the quantized weights are requested.
	// example: true
	Quantized bool `json:"quantized" example:"true"`
	// Approximate download size in bytes.
	// example: 100000000
	EstimatedBytes uint64 `json:"estimated_bytes" example:"100000000"`
}

// SentimentScore is one scored label from a sentiment pipeline.
type SentimentScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SummaryOutput is the output of a summarization pipeline.
type SummaryOutput struct {
	SummaryText string `json:"summary_text"`
}

// RawEntity is an entity as produced by a token-classification pipeline.
// Start and End are rune offsets and may be missing or inconsistent with Word.
type RawEntity struct {
	EntityGroup string  `json:"entity_group"`
	Score       float64 `json:"score"`
	Word        string  `json:"word"`
	Start       *int    `json:"start,omitempty"`
	End         *int    `json:"end,omitempty"`
}

// UnmarshalJSON tolerates non-numeric or fractional offsets by dropping them,
// so that a malformed offset never fails the whole payload.
func (e *RawEntity) UnmarshalJSON(b []byte) error {
	var raw struct {
		EntityGroup string          `json:"entity_group"`
		Entity      string          `json:"entity"`
		Score       float64         `json:"score"`
		Word        string          `json:"word"`
		Start       json.RawMessage `json:"start"`
		End         json.RawMessage `json:"end"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.EntityGroup = raw.EntityGroup
	if e.EntityGroup == "" {
		e.EntityGroup = raw.Entity
	}
	e.Score = raw.Score
	e.Word = raw.Word
	e.Start = offsetFromJSON(raw.Start)
	e.End = offsetFromJSON(raw.End)
	return nil
}

func offsetFromJSON(b json.RawMessage) *int {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == 'n' || b[0] == '"' {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	n := int(f)
	return &n
}

// Offset returns a pointer to n, for building RawEntity literals.
func Offset(n int) *int { return &n }

// Output is the validated, task-specific payload of a successful run.
// Exactly one of Sentiment, Entities or Summary is meaningful, selected by Task.
type Output struct {
	Task      TaskID           `json:"task"`
	Sentiment []SentimentScore `json:"sentiment,omitempty"`
	Entities  []RawEntity      `json:"entities,omitempty"`
	Summary   *SummaryOutput   `json:"summary,omitempty"`
}

// FragmentKind tells plain text apart from entity spans.
type FragmentKind string

const (
	FragmentText   FragmentKind = "text"
	FragmentEntity FragmentKind = "entity"
)

// Fragment is a contiguous piece of the original text, either plain or an
// entity span. Start and End are rune offsets, End exclusive.
type Fragment struct {
	Kind  FragmentKind `json:"kind"`
	Text  string       `json:"text"`
	Start int          `json:"start"`
	End   int          `json:"end"`
	// Entity fields; empty for plain text.
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score,omitempty"`
	Word  string  `json:"word,omitempty"`
}

// Scores holds the per-task heuristic scores computed by the router.
type Scores struct {
	Summarization int `json:"summarization"`
	NER           int `json:"ner"`
	Sentiment     int `json:"sentiment"`
}

// Suggestion is the router's recommendation for a piece of text.
type Suggestion struct {
	Task      TaskID `json:"task"`
	Reason    string `json:"reason"`
	Switch    bool   `json:"switch"`
	Scores    Scores `json:"scores"`
	WordCount int    `json:"word_count"`
	Length    int    `json:"length"`
}

// SentimentVerdict is the normalized view of a sentiment output.
type SentimentVerdict struct {
	Dominant SentimentScore   `json:"dominant"`
	Positive bool             `json:"positive"`
	Scores   []SentimentScore `json:"scores"`
}

// TriggerPolarity classifies a highlighted word.
type TriggerPolarity string

const (
	TriggerNone     TriggerPolarity = ""
	TriggerPositive TriggerPolarity = "positive"
	TriggerNegative TriggerPolarity = "negative"
)

// Trigger is one whitespace-delimited token of the input (delimiters kept)
// with its sentiment polarity, if any.
type Trigger struct {
	Text     string          `json:"text"`
	Polarity TriggerPolarity `json:"polarity,omitempty"`
}
