package worker

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultQueueDepth   = 32
	defaultResponseBuf  = 64
	defaultInferTimeout = 2 * time.Minute
)

// Config encapsulates all tunables for Worker construction.
type Config struct {
	// QueueDepth bounds requests waiting behind the one in flight.
	QueueDepth int
	// LoadTimeout bounds a single pipeline load; zero means no limit.
	LoadTimeout time.Duration
	// InferTimeout bounds a single invocation.
	InferTimeout time.Duration
	// Cache is the pipeline cache owned by the worker; a fresh one is
	// created when nil.
	Cache     *PipelineCache
	Publisher EventPublisher
	Logger    *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	if c.InferTimeout <= 0 {
		c.InferTimeout = defaultInferTimeout
	}
	if c.Cache == nil {
		c.Cache = NewPipelineCache()
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.Logger == nil {
		l := zerolog.Nop()
		c.Logger = &l
	}
	return c
}
