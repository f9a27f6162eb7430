package types

// AIStatus is the orchestration client's lifecycle state.
type AIStatus string

const (
	StatusIdle    AIStatus = "idle"
	StatusLoading AIStatus = "loading"
	StatusReady   AIStatus = "ready"
	StatusError   AIStatus = "error"
)

// AIState is a snapshot of an orchestration client.
type AIState struct {
	// Lifecycle state.
	// example: loading
	Status AIStatus `json:"status" example:"loading"`
	// Identifier of the latest issued run; 0 before the first run.
	// example: 3
	RunID uint64 `json:"run_id" example:"3"`
	// Task of the latest run.
	// example: sentiment
	Task TaskID `json:"task,omitempty" example:"sentiment"`
	// Load progress of the current run, if any.
	Progress *Progress `json:"progress,omitempty"`
	// Output of the last successful run.
	Result *Output `json:"result,omitempty"`
	// Timings of the last successful run.
	Metrics *Metrics `json:"metrics,omitempty"`
	// Failure message of the last failed run.
	// example: boom
	Error string `json:"error,omitempty" example:"boom"`
}

// Terminal reports whether s will not change without a new run or reset.
func (s AIState) Terminal() bool {
	return s.Status == StatusReady || s.Status == StatusError || s.Status == StatusIdle
}

// TasksResponse wraps the list of tasks returned by GET /v1/tasks.
type TasksResponse struct {
	Tasks []TaskProfile `json:"tasks"`
}

// DetectRequest asks the router for a task suggestion.
type DetectRequest struct {
	// Text to analyze.
	// example: Elon Musk announced that SpaceX plans to launch Starship.
	Text string `json:"text" example:"Elon Musk announced that SpaceX plans to launch Starship."`
	// Currently active task, if any.
	// example: sentiment
	Active TaskID `json:"active,omitempty" example:"sentiment"`
}

// DetectResponse is returned by POST /v1/detect.
type DetectResponse struct {
	Suggestion
	// Display message; wraps the reason when no switch is needed.
	Message string `json:"message"`
}

// ReconcileRequest carries text and raw entities to reconcile.
type ReconcileRequest struct {
	// example: Elon Musk founded SpaceX.
	Text     string      `json:"text" example:"Elon Musk founded SpaceX."`
	Entities []RawEntity `json:"entities"`
}

// DroppedEntity records an entity that could not be placed in the text.
type DroppedEntity struct {
	Entity RawEntity `json:"entity"`
	// example: word not found after cursor
	Reason string `json:"reason" example:"word not found after cursor"`
}

// ReconcileResponse is returned by POST /v1/reconcile.
type ReconcileResponse struct {
	Fragments []Fragment      `json:"fragments"`
	Dropped   []DroppedEntity `json:"dropped,omitempty"`
}

// RunTaskRequest is the body of POST /v1/infer and POST /v1/sessions/{id}/run.
type RunTaskRequest struct {
	// Task to run.
	// example: sentiment
	Task TaskID `json:"task" example:"sentiment"`
	// Input text; must not be blank.
	// example: I love this framework, it is amazing.
	Text string `json:"text" example:"I love this framework, it is amazing."`
}

// InferResponse is returned by POST /v1/infer.
type InferResponse struct {
	Task    TaskID   `json:"task"`
	Output  Output   `json:"output"`
	Metrics *Metrics `json:"metrics,omitempty"`
	// Reconciled entity fragments (ner only).
	Fragments []Fragment `json:"fragments,omitempty"`
	// Normalized sentiment (sentiment only).
	Verdict  *SentimentVerdict `json:"verdict,omitempty"`
	Triggers []Trigger         `json:"triggers,omitempty"`
	// True when served from the result cache.
	// example: false
	Cached bool `json:"cached" example:"false"`
}

// SessionResponse is returned by POST /v1/sessions.
type SessionResponse struct {
	// example: 9b2f6c1e-3a4d-4f5e-8a6b-7c8d9e0f1a2b
	ID string `json:"id" example:"9b2f6c1e-3a4d-4f5e-8a6b-7c8d9e0f1a2b"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// PipelineStatus summarizes a cached pipeline for /status.
type PipelineStatus struct {
	// example: token-classification
	Kind string `json:"kind" example:"token-classification"`
	// example: Xenova/bert-base-NER
	ModelRef string `json:"model_ref" example:"Xenova/bert-base-NER"`
	// Time spent loading, in milliseconds.
	// example: 1532.5
	LoadTimeMs float64 `json:"load_time_ms" example:"1532.5"`
	// Number of inferences served.
	// example: 7
	Uses uint64 `json:"uses" example:"7"`
	// Last use (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Pipelines []PipelineStatus `json:"pipelines"`
	// Worker state (running, stopped).
	// example: running
	State string `json:"state" example:"running"`
	// Number of queued requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// example: 12
	RunsTotal uint64 `json:"runs_total" example:"12"`
	// Last error observed by the worker (if any).
	LastError string `json:"last_error,omitempty"`
	// Number of open sessions.
	// example: 2
	Sessions int `json:"sessions" example:"2"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
