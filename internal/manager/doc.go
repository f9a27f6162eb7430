// Package manager is the orchestration layer behind the HTTP API. It owns the
// single inference worker and shares it, through a worker.Mux, between:
//
//   - sessions: long-lived orchestration clients addressed by id, each with
//     its own run-id space (sessions.go);
//   - one-shot runs: a throwaway client per request, fronted by the result
//     cache (infer.go).
//
// Files by concern:
//
//   - manager.go: Manager type, lifecycle (Start/Close), simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - errors.go: error types and helpers (IsTooBusy, IsSessionNotFound, ...).
//   - status_report.go: Status reporting for /status.
//
// External packages should use public methods only.
package manager
