package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"nlpd/pkg/types"
)

// sanitize converts raw pipeline output into the typed output for task.
// Output is round-tripped through JSON so that providers may return maps,
// structs or raw JSON interchangeably.
func sanitize(task types.TaskID, raw any) (types.Output, error) {
	b, err := toJSON(raw)
	if err != nil {
		return types.Output{}, fmt.Errorf("encode %s output: %w", task, err)
	}
	out := types.Output{Task: task}
	switch task {
	case types.TaskSentiment:
		out.Sentiment, err = decodeSentiment(b)
	case types.TaskNER:
		out.Entities, err = decodeEntities(b)
	case types.TaskSummarization:
		out.Summary, err = decodeSummary(b)
	default:
		err = fmt.Errorf("unknown task %q", task)
	}
	if err != nil {
		return types.Output{}, fmt.Errorf("invalid %s output: %w", task, err)
	}
	return out, nil
}

func toJSON(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return nil, errors.New("empty output")
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// decodeSentiment accepts a single object, a list, or a list of lists (one
// per input) and returns the scores of the first input.
func decodeSentiment(b []byte) ([]types.SentimentScore, error) {
	var list []types.SentimentScore
	if err := json.Unmarshal(b, &list); err != nil {
		var nested [][]types.SentimentScore
		if err2 := json.Unmarshal(b, &nested); err2 == nil {
			if len(nested) > 0 {
				list = nested[0]
			}
		} else {
			var one types.SentimentScore
			if err3 := json.Unmarshal(b, &one); err3 != nil {
				return nil, err
			}
			list = []types.SentimentScore{one}
		}
	}
	if len(list) == 0 {
		return nil, errors.New("no sentiment scores")
	}
	for _, s := range list {
		if s.Label == "" {
			return nil, errors.New("sentiment score without label")
		}
	}
	return list, nil
}

func decodeEntities(b []byte) ([]types.RawEntity, error) {
	var list []types.RawEntity
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []types.RawEntity{}
	}
	return list, nil
}

func decodeSummary(b []byte) (*types.SummaryOutput, error) {
	var list []types.SummaryOutput
	if err := json.Unmarshal(b, &list); err != nil {
		var one types.SummaryOutput
		if err2 := json.Unmarshal(b, &one); err2 != nil {
			return nil, err
		}
		return &one, nil
	}
	if len(list) == 0 {
		return &types.SummaryOutput{}, nil
	}
	return &list[0], nil
}
