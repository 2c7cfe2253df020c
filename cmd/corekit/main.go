// Command corekit runs the coordination runtime as a standalone
// process: it wires the event bus, state store, telemetry queue and
// bootstrap sequencer, loads Lua feature modules, fires the lifecycle
// signal and serves the diagnostic HTTP surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/corekit/internal/config"
	"github.com/dshills/corekit/internal/core"
	"github.com/dshills/corekit/internal/httpapi"
	"github.com/dshills/corekit/internal/plugin"
	"github.com/dshills/corekit/internal/state"
)

// version is set by the release build.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "corekit",
		Short:         "In-process coordination runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the corekit version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "corekit", version)
		},
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	var diagnostics bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the runtime until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if diagnostics {
				cfg.Diagnostics = true
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "enable diagnostic tracing")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	log := newLogger(cfg)

	opts := []core.Option{
		core.WithLogger(log),
		core.WithDiagnostics(cfg.Diagnostics),
		core.WithTelemetryCapacity(cfg.Telemetry.Capacity),
	}
	if cfg.State.File != "" {
		opts = append(opts, core.WithPersistence(
			state.NewFilePersister(cfg.State.File), cfg.State.PersistKeys...))
	}

	rt := core.New(opts...)
	defer rt.Close()

	if cfg.State.File != "" {
		if err := rt.LoadState(); err != nil {
			log.Warn().Err(err).Str("file", cfg.State.File).Msg("persisted state not loaded")
		}
	}

	mgr := plugin.NewManager()
	defer mgr.Close()
	if cfg.Plugins.Dir != "" {
		for _, err := range mgr.LoadDir(rt, cfg.Plugins.Dir) {
			log.Error().Err(err).Msg("plugin skipped")
		}
		log.Info().Int("count", len(mgr.Hosts())).Str("dir", cfg.Plugins.Dir).Msg("plugins loaded")
	}

	if err := rt.Fire(); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Info().Str("phase", rt.Phase().String()).Msg("runtime ready")

	var srv *httpapi.Server
	srvErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		srv = httpapi.New(rt, log, cfg.HTTP.Listen)
		go func() {
			srvErr <- srv.Start()
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("diagnostic server: %w", err)
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("server shutdown")
		}
	}
	return nil
}

// newLogger builds the process logger from the configured level.
// An unknown level name falls back to info.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}
