package worker

import "nlpd/pkg/types"

// OptionsFor returns the invoke options used for a task.
func OptionsFor(task types.TaskID) InvokeOptions {
	switch task {
	case types.TaskNER:
		// merges B-/I- tags and drops O tokens
		return InvokeOptions{AggregationStrategy: "simple"}
	case types.TaskSummarization:
		return InvokeOptions{
			MaxNewTokens:  150,
			MinNewTokens:  10,
			NumBeams:      2,
			LengthPenalty: 2.0,
			DoSample:      false,
		}
	case types.TaskSentiment:
		// both polarity scores, not just the argmax
		return InvokeOptions{TopK: 2}
	}
	return InvokeOptions{}
}
