package manager

import "errors"

// tooBusyError signals backpressure: the session limit or the worker queue
// is exhausted (429).
type tooBusyError struct{ reason string }

func (e tooBusyError) Error() string { return "too busy: " + e.reason }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

type sessionNotFoundError struct{ id string }

func (e sessionNotFoundError) Error() string { return "session not found: " + e.id }

// ErrSessionNotFound returns an error for an unknown session id.
func ErrSessionNotFound(id string) error { return sessionNotFoundError{id: id} }

// IsSessionNotFound reports whether err indicates a missing session id.
func IsSessionNotFound(err error) bool {
	var e sessionNotFoundError
	return errors.As(err, &e)
}

// invalidRequestError rejects a request before anything is dispatched:
// blank text or an unknown task (400).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err indicates a malformed request.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// runInFlightError is returned when a session is asked to start a run while
// its previous run is still loading (409).
type runInFlightError struct {
	id    string
	runID uint64
}

func (e runInFlightError) Error() string { return "session " + e.id + " has a run in flight" }

// IsRunInFlight reports whether err indicates a conflicting run.
func IsRunInFlight(err error) bool {
	var e runInFlightError
	return errors.As(err, &e)
}

// runFailedError carries the worker's error message for a failed run (502).
type runFailedError struct{ msg string }

func (e runFailedError) Error() string { return e.msg }

// IsRunFailed reports whether err is a load or inference failure reported by
// the worker.
func IsRunFailed(err error) bool {
	var e runFailedError
	return errors.As(err, &e)
}
