package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the HTTP layer's structured logger.
var zlog = zerolog.New(os.Stderr).With().Timestamp().Logger()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// lineLogger logs complete NDJSON lines of a streamed response at debug
// level.
type lineLogger struct {
	buf []byte
	rid string
}

func (lw *lineLogger) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := indexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if idx > 0 {
			zlog.Debug().Str("request_id", lw.rid).RawJSON("line", lw.buf[:idx]).Msg("events>")
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel is read once from NLPD_HTTP_LOG_LEVEL.
var defaultLogLevel = parseLevel(os.Getenv("NLPD_HTTP_LOG_LEVEL"))

// SetDefaultLogLevel overrides the per-request default.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqLog logs the start and end of long-running requests at the request's
// level.
type reqLog struct {
	lvl   LogLevel
	rid   string
	path  string
	start time.Time
}

func newReqLog(r *http.Request) reqLog {
	return reqLog{lvl: requestLogLevel(r), rid: middleware.GetReqID(r.Context()), path: r.URL.Path, start: time.Now()}
}

func (l reqLog) begin(task string) {
	if l.lvl < LevelInfo {
		return
	}
	zlog.Info().Str("path", l.path).Str("task", task).Str("request_id", l.rid).Msg("request start")
}

func (l reqLog) end(status int, err error) {
	if l.lvl < LevelInfo && !(l.lvl >= LevelError && err != nil) {
		return
	}
	ev := zlog.Info()
	if err != nil {
		ev = zlog.Error().Err(err)
	}
	ev.Int("status", status).Dur("dur", time.Since(l.start)).Str("request_id", l.rid).Msg("request end")
}
