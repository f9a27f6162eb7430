package manager

import (
	"time"

	"github.com/rs/zerolog"

	"nlpd/internal/registry"
	"nlpd/internal/resultcache"
	"nlpd/internal/worker"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxSessions = 64
	defaultRunTimeout  = 5 * time.Minute
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry *registry.Registry
	Provider worker.Provider
	// Worker is passed to worker.New; its Logger defaults to Logger.
	Worker worker.Config
	// ResultCache fronts one-shot runs; nil disables caching.
	ResultCache *resultcache.Cache
	MaxSessions int
	// RunTimeout bounds a one-shot run including any pipeline load.
	RunTimeout time.Duration
	Logger     *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig. The worker is not
// started until Start.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.Registry == nil {
		cfg.Registry = registry.Default()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	if cfg.Worker.Logger == nil {
		cfg.Worker.Logger = &log
	}
	w := worker.New(cfg.Provider, cfg.Worker)
	return &Manager{
		reg:         cfg.Registry,
		w:           w,
		mux:         worker.NewMux(w),
		cache:       cfg.ResultCache,
		maxSessions: cfg.MaxSessions,
		runTimeout:  cfg.RunTimeout,
		log:         log,
		sessions:    make(map[string]*session),
		startTime:   time.Now(),
	}
}
