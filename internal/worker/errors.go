package worker

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Post once the worker has been stopped.
var ErrStopped = errors.New("worker stopped")

// configurationError signals a request that can never succeed as sent
// (unknown task, missing model reference). Maps to 400.
type configurationError struct{ msg string }

func (e configurationError) Error() string { return "Invalid Configuration: " + e.msg }

// ErrConfiguration constructs a configurationError.
func ErrConfiguration(format string, args ...any) error {
	return configurationError{msg: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	var ce configurationError
	return errors.As(err, &ce)
}

// loadError wraps a provider failure while fetching or initializing a pipeline.
type loadError struct {
	ref string
	err error
}

func (e loadError) Error() string { return e.err.Error() }
func (e loadError) Unwrap() error { return e.err }

// ErrLoad wraps err as a load failure for modelRef.
func ErrLoad(modelRef string, err error) error { return loadError{ref: modelRef, err: err} }

// IsLoad reports whether err is a pipeline load failure.
func IsLoad(err error) bool {
	var le loadError
	return errors.As(err, &le)
}

// inferenceError wraps a failure raised while running a pipeline.
type inferenceError struct{ err error }

func (e inferenceError) Error() string { return e.err.Error() }
func (e inferenceError) Unwrap() error { return e.err }

// ErrInference wraps err as an inference failure.
func ErrInference(err error) error { return inferenceError{err: err} }

// IsInference reports whether err is an inference failure.
func IsInference(err error) bool {
	var ie inferenceError
	return errors.As(err, &ie)
}

// dependencyUnavailableError signals a provider that cannot run in this build
// or environment so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}

// errorKind is the metrics label for err.
func errorKind(err error) string {
	switch {
	case IsConfiguration(err):
		return "configuration"
	case IsDependencyUnavailable(err):
		return "dependency"
	case IsLoad(err):
		return "load"
	case IsInference(err):
		return "inference"
	default:
		return "other"
	}
}
