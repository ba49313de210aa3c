package app

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/catalogd"
	"github.com/agentstation/catalogd/internal/announce"
	"github.com/agentstation/catalogd/internal/connectors"
	"github.com/agentstation/catalogd/internal/server"
	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/sources"
	"github.com/agentstation/catalogd/pkg/sources/files"
	"github.com/agentstation/catalogd/pkg/substitute"
)

// NewServeCommand creates the serve command.
func (a *App) NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Short:   "Load catalogs and keep them reconciled",
		Long: `Serve performs the initial catalog load, then reconciles on a fixed
delay until interrupted. The admin HTTP server answers health, readiness,
catalog listing, reload and metrics requests while the daemon runs.

If the initial load fails the command exits with a non-zero status.`,
		Example: `  catalogd serve --config /etc/catalogd/catalogd.yaml
  CATALOGD_CATALOG_SOURCE_TYPE=DATABASE catalogd serve --port 9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&a.config.Host, "host", a.config.Host, "admin server host")
	cmd.Flags().IntVarP(&a.config.Port, "port", "p", a.config.Port, "admin server port")
	cmd.Flags().StringVar(&a.config.AdminToken, "admin-token", a.config.AdminToken, "token required by mutating admin endpoints (env CATALOGD_ADMIN_TOKEN)")
	cmd.Flags().BoolVar(&a.config.MetricsEnabled, "metrics", a.config.MetricsEnabled, "expose Prometheus metrics on /metrics")
	return cmd
}

func (a *App) runServe(ctx context.Context) error {
	cfg, err := a.CatalogConfig()
	if err != nil {
		return err
	}
	logger := a.logger

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	registry := connectors.Builtin(connectors.NewRegistry(logger))
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close connectors")
		}
	}()
	announcer := announce.New(logger)

	engine, err := catalogd.New(src, registry, announcer,
		catalogd.WithConfig(cfg),
		catalogd.WithLogger(*logger),
	)
	if err != nil {
		return err
	}

	serverCfg := server.DefaultConfig()
	serverCfg.Host = a.config.Host
	serverCfg.Port = a.config.Port
	serverCfg.AdminToken = a.config.AdminToken
	serverCfg.MetricsEnabled = a.config.MetricsEnabled

	srv, err := server.New(server.Deps{
		Engine:     engine,
		Announcer:  announcer,
		Connectors: registry,
		Logger:     logger,
	}, serverCfg)
	if err != nil {
		return err
	}

	logger.Info().
		Str("source", cfg.SourceType.String()).
		Str("version", a.version).
		Msg("Starting catalogd")

	g, gctx := errgroup.WithContext(ctx)

	// The server starts first so probes answer during the initial load.
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	g.Go(func() error {
		if err := engine.Initialize(gctx); err != nil {
			return err
		}

		if fs, ok := src.(*files.Source); ok && cfg.Watch.Enabled {
			watcher, err := files.Watch(gctx, fs, cfg.Watch.Debounce, engine.Trigger)
			if err != nil {
				logger.Warn().Err(err).Msg("File watching disabled")
			} else {
				defer func() { _ = watcher.Close() }()
			}
		}

		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		return engine.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newSource builds the configured source with ${ENV:NAME} substitution.
func newSource(cfg config.Config) (sources.Source, error) {
	return sources.New(cfg, sources.WithSubstitution(substitute.Env()))
}
