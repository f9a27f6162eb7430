package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"nlpd/internal/config"
	"nlpd/internal/provider/hfapi"
	"nlpd/internal/provider/offline"
	"nlpd/internal/worker"
)

// newProvider selects the inference provider named by cfg.Provider.Kind.
func newProvider(cfg config.Config, log zerolog.Logger) (worker.Provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderOffline, "":
		return offline.New(), nil
	case config.ProviderHFAPI:
		l := log.With().Str("component", "hfapi").Logger()
		return hfapi.New(hfapi.Options{
			Endpoint: cfg.Provider.Endpoint,
			HubURL:   cfg.Provider.HubURL,
			Token:    cfg.Provider.Token,
			CacheDir: cfg.Provider.CacheDir,
			Timeout:  time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
			Logger:   &l,
		})
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}

// workerConfig maps the daemon configuration onto worker tunables.
func workerConfig(cfg config.Config, log *zerolog.Logger) worker.Config {
	return worker.Config{
		QueueDepth:   cfg.QueueDepth,
		InferTimeout: time.Duration(cfg.InferTimeoutSeconds) * time.Second,
		Logger:       log,
	}
}
