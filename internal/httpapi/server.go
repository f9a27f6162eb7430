// Package httpapi exposes the task registry, the router, the reconciler and
// the orchestration service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nlpd/internal/reconcile"
	"nlpd/internal/router"
	"nlpd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Tasks() []types.TaskProfile
	Infer(ctx context.Context, req types.RunTaskRequest) (types.InferResponse, error)
	CreateSession() (types.SessionResponse, error)
	Session(id string) (types.AIState, error)
	RunSession(id string, req types.RunTaskRequest) (types.AIState, error)
	ResetSession(id string) (types.AIState, error)
	WatchSession(ctx context.Context, id string, emit func(types.AIState) error) error
	CloseSession(id string) error
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// application/x-ndjson is not in the default type list, so event
	// streams stay uncompressed and flushable.
	r.Use(middleware.Compress(5))
	if corsEnabled {
		origins, methods, headers := corsDefaults()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tasks", h.tasks)
		r.Post("/detect", h.detect)
		r.Post("/reconcile", h.reconcile)
		r.Post("/infer", h.infer)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.createSession)
			r.Get("/{id}", h.getSession)
			r.Delete("/{id}", h.closeSession)
			r.Post("/{id}/run", h.runSession)
			r.Post("/{id}/reset", h.resetSession)
			r.Get("/{id}/events", h.sessionEvents)
		})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// decodeJSON enforces the content type and body limit and decodes into v.
// It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// tasks godoc
// @Summary  List tasks
// @Tags     tasks
// @Produce  json
// @Success  200 {object} types.TasksResponse
// @Router   /v1/tasks [get]
func (h *handlers) tasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.TasksResponse{Tasks: h.svc.Tasks()})
}

// detect godoc
// @Summary  Suggest a task for a text
// @Tags     tasks
// @Accept   json
// @Produce  json
// @Param    request body types.DetectRequest true "Text and active task"
// @Success  200 {object} types.DetectResponse
// @Failure  400 {object} types.ErrorResponse
// @Router   /v1/detect [post]
func (h *handlers) detect(w http.ResponseWriter, r *http.Request) {
	var req types.DetectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	active := types.TaskID("")
	if req.Active != "" {
		id, err := types.ParseTaskID(string(req.Active))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		active = id
	}
	s := router.Suggest(req.Text, active)
	writeJSON(w, http.StatusOK, types.DetectResponse{Suggestion: s.Suggestion, Message: s.Message()})
}

// reconcile godoc
// @Summary  Align entity spans with their text
// @Tags     tasks
// @Accept   json
// @Produce  json
// @Param    request body types.ReconcileRequest true "Text and raw entities"
// @Success  200 {object} types.ReconcileResponse
// @Router   /v1/reconcile [post]
func (h *handlers) reconcile(w http.ResponseWriter, r *http.Request) {
	var req types.ReconcileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := reconcile.Reconcile(req.Text, req.Entities)
	writeJSON(w, http.StatusOK, types.ReconcileResponse{Fragments: res.Fragments, Dropped: res.Dropped})
}

// infer godoc
// @Summary  Run a task to completion
// @Tags     inference
// @Accept   json
// @Produce  json
// @Param    request body types.RunTaskRequest true "Task and text"
// @Success  200 {object} types.InferResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  429 {object} types.ErrorResponse
// @Failure  502 {object} types.ErrorResponse
// @Router   /v1/infer [post]
func (h *handlers) infer(w http.ResponseWriter, r *http.Request) {
	var req types.RunTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rl := newReqLog(r)
	rl.begin(string(req.Task))
	ctx, cancel := requestContext(r, inferTimeoutDuration())
	defer cancel()
	resp, err := h.svc.Infer(ctx, req)
	if err != nil {
		if canceled(r) {
			return
		}
		rl.end(writeServiceError(w, err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	rl.end(http.StatusOK, nil)
}

// createSession godoc
// @Summary  Open a session
// @Tags     sessions
// @Produce  json
// @Success  201 {object} types.SessionResponse
// @Failure  429 {object} types.ErrorResponse
// @Router   /v1/sessions [post]
func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.CreateSession()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, s)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runSession godoc
// @Summary  Start a run in a session
// @Tags     sessions
// @Accept   json
// @Produce  json
// @Param    id      path string               true "Session id"
// @Param    request body types.RunTaskRequest true "Task and text"
// @Success  202 {object} types.AIState
// @Failure  404 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Router   /v1/sessions/{id}/run [post]
func (h *handlers) runSession(w http.ResponseWriter, r *http.Request) {
	var req types.RunTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.RunSession(chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

func (h *handlers) resetSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.ResetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// sessionEvents streams state snapshots as NDJSON until the session reaches
// a terminal state.
// @Summary  Stream session state
// @Tags     sessions
// @Produce  application/x-ndjson
// @Param    id path string true "Session id"
// @Success  200 {object} types.AIState
// @Router   /v1/sessions/{id}/events [get]
func (h *handlers) sessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rl := newReqLog(r)
	var out io.Writer = w
	if rl.lvl >= LevelDebug {
		out = io.MultiWriter(w, &lineLogger{rid: rl.rid})
	}
	enc := json.NewEncoder(out)
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	started := false
	eventStreams.Inc()
	defer eventStreams.Dec()
	ctx, cancel := requestContext(r, 0)
	defer cancel()
	err := h.svc.WatchSession(ctx, id, func(st types.AIState) error {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(st); err != nil {
			return err
		}
		flush()
		return nil
	})
	if err != nil && !started && !canceled(r) {
		writeServiceError(w, err)
	}
}
