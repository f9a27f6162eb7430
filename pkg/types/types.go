package types

// RequestType names a worker request. Only "run" exists today.
type RequestType string

const RequestRun RequestType = "run"

// RunRequest is sent from the orchestration client to the worker.
type RunRequest struct {
	Type         RequestType `json:"type"`
	RunID        uint64      `json:"runId"`
	TaskID       TaskID      `json:"taskId"`
	Text         string      `json:"text"`
	ModelRef     string      `json:"modelReference"`
	PipelineKind string      `json:"pipelineKind"`
	Quantized    bool        `json:"quantized"`
}

// ResponseType tags a RunResponse variant.
type ResponseType string

const (
	ResponseProgress ResponseType = "progress"
	ResponseResult   ResponseType = "result"
	ResponseError    ResponseType = "error"
)

// Progress reports model download/initialization progress.
type Progress struct {
	File string `json:"file"`
	// Percentage in [0, 100].
	Percentage float64 `json:"percentage"`
	Phase      string  `json:"phase"`
}

// Metrics carries run timings. LoadTimeMs is set only when the run loaded
// its pipeline cold.
type Metrics struct {
	InferenceTimeMs float64  `json:"inferenceTimeMs"`
	LoadTimeMs      *float64 `json:"loadTimeMs,omitempty"`
}

// RunResponse is sent from the worker to the client. Any number of progress
// responses precede exactly one result or error for a given RunID.
type RunResponse struct {
	Type     ResponseType `json:"type"`
	RunID    uint64       `json:"runId"`
	Progress *Progress    `json:"progress,omitempty"`
	Data     *Output      `json:"data,omitempty"`
	Metrics  *Metrics     `json:"metrics,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Terminal reports whether r ends its run.
func (r RunResponse) Terminal() bool {
	return r.Type == ResponseResult || r.Type == ResponseError
}

func NewProgressResponse(runID uint64, p Progress) RunResponse {
	return RunResponse{Type: ResponseProgress, RunID: runID, Progress: &p}
}

func NewResultResponse(runID uint64, out Output, m Metrics) RunResponse {
	return RunResponse{Type: ResponseResult, RunID: runID, Data: &out, Metrics: &m}
}

func NewErrorResponse(runID uint64, msg string) RunResponse {
	return RunResponse{Type: ResponseError, RunID: runID, Message: msg}
}
