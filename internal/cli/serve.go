package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nlpd/internal/httpapi"
	"nlpd/internal/manager"
	"nlpd/internal/resultcache"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API on the configured address.

Endpoints: /v1/tasks, /v1/detect, /v1/reconcile, /v1/infer, /v1/sessions,
/status, /healthz, /readyz and /metrics.`,
		Example: "  nlpd serve --addr :9090\n  nlpd serve -c nlpd.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			ln, err := net.Listen("tcp", a.cfg.Addr)
			if err != nil {
				return err
			}
			return a.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (overrides config)")
	return cmd
}

// serve runs the daemon on ln until ctx is canceled, then drains in-flight
// requests and stops the worker.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	log := jsonLogger(a.errOut, a.cfg.LogLevel)
	a.log = log

	reg, err := a.cfg.Registry()
	if err != nil {
		return err
	}
	prov, err := newProvider(a.cfg, log)
	if err != nil {
		return err
	}
	cache := resultcache.New(time.Duration(a.cfg.ResultCacheTTLSeconds)*time.Second, &log)
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:    reg,
		Provider:    prov,
		Worker:      workerConfig(a.cfg, &log),
		ResultCache: cache,
		Logger:      &log,
	})

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(a.cfg.MaxBodyBytes)
	httpapi.SetInferTimeoutSeconds(int64(a.cfg.InferTimeoutSeconds))
	httpapi.SetCORSOptions(a.cfg.CORS.Enabled, a.cfg.CORS.Origins, a.cfg.CORS.Methods, a.cfg.CORS.Headers)
	httpapi.SetBaseContext(ctx)
	defer httpapi.SetBaseContext(nil)

	srv := &http.Server{
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	mgr.Start(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("event", "listen").Str("addr", ln.Addr().String()).
			Str("provider", a.cfg.Provider.Kind).Msg("nlpd")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Str("event", "shutdown").Err(err).Msg("nlpd")
		}
		return nil
	})
	err = g.Wait()
	if cerr := mgr.Close(); cerr != nil {
		log.Warn().Str("event", "close").Err(cerr).Msg("nlpd")
	}
	log.Info().Str("event", "stopped").Msg("nlpd")
	return err
}
