// Command solvedboard crawls an organization's members from the ranking
// service, publishes daily snapshots and serves them over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	// Timezone database for hosts without /usr/share/zoneinfo.
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/solvedboard/internal/adapters/http/api"
	"github.com/okian/solvedboard/internal/adapters/http/site"
	"github.com/okian/solvedboard/internal/adapters/http/swagger"
	app "github.com/okian/solvedboard/internal/app"
	"github.com/okian/solvedboard/internal/config"
	"github.com/okian/solvedboard/internal/pipeline"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type exitCode int

const (
	exitCodeSuccess exitCode = 0
	exitCodeError   exitCode = 1
)

func main() {
	os.Exit(int(run(os.Args[1:], os.Stdout)))
}

func run(args []string, out io.Writer) exitCode {
	root := newRootCmd(out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		configFile string
		verbose    bool
	)
	root := &cobra.Command{
		Use:           "solvedboard",
		Short:         "Organization snapshot board for the ranking service.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides "+config.EnvConfigFile+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")

	load := func(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
		if configFile != "" {
			if err := os.Setenv(config.EnvConfigFile, configFile); err != nil {
				return nil, nil, err
			}
		}
		return setup(cmd.Context(), verbose)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API with the scheduler and refresh worker.",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load(cmd)
				if err != nil {
					return err
				}
				return serve(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "crawl",
			Short: "Run the pipeline once and write the snapshot.",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load(cmd)
				if err != nil {
					return err
				}
				return crawl(cmd.Context(), cfg, log, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version.",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "solvedboard", version)
			},
		},
	)
	return root
}

// setup loads the configuration and initializes the global logger.
func setup(ctx context.Context, verbose bool) (*config.Config, logger.Logger, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

func serve(parent context.Context, cfg *config.Config, log logger.Logger) error {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(app.WithConfig(cfg), app.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newMux registers docs, the root redirect and the business API.
func newMux(ctx context.Context, svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithCORSOrigins(cfg.CORSOrigins...)).Register(ctx, mux)
	return mux
}

func crawl(parent context.Context, cfg *config.Config, log logger.Logger, out io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(app.WithConfig(cfg), app.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	rep, err := svc.Crawl(ctx)
	printReport(out, rep)
	return err
}

func printReport(out io.Writer, rep pipeline.Report) {
	fmt.Fprintf(out, "run %s: %s in %s\n", rep.RunID, rep.Outcome, rep.Duration().Truncate(time.Millisecond))
	fmt.Fprintf(out, "  members: %d (profile failures %d, problem failures %d)\n",
		rep.Members, len(rep.ProfileFailures), len(rep.ProblemFailures))
	if rep.PeersError != "" {
		fmt.Fprintf(out, "  peers: %s\n", rep.PeersError)
	}
	if rep.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", rep.Error)
	}
}

// startSystemMetricsUpdater updates runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
