package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"emberhold/realmd/pkg/admin"
	"emberhold/realmd/pkg/cli"
	"emberhold/realmd/pkg/config"
	"emberhold/realmd/pkg/events"
	"emberhold/realmd/pkg/scripts"
	"emberhold/realmd/pkg/server"
	"emberhold/realmd/pkg/storage"
	"emberhold/realmd/pkg/telemetry/health"
	"emberhold/realmd/pkg/telemetry/logging"
	"emberhold/realmd/pkg/telemetry/metrics"
	"emberhold/realmd/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	udpAddress    string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the realm",
	Long: `Start the realm with the specified configuration.

The server migrates the game store schema, binds its TCP and UDP sockets,
loads the world and opens for clients. SIGINT or SIGTERM stops it after a
final world save.

Examples:
  # Start with default config
  realmd run

  # Start with custom config
  realmd run --config /etc/realmd/config.yaml

  # Override the client addresses
  realmd run --listen 0.0.0.0:10300 --udp 0.0.0.0:10400

  # Validate config without starting the realm
  realmd run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override TCP listen address")
	runCmd.Flags().StringVar(&runFlags.udpAddress, "udp", "", "override UDP listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the realm")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.udpAddress != "" {
		cfg.UDP.ListenAddress = runFlags.udpAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}

	logger, err := setupLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	bootID := uuid.NewString()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to create tracer: %w", err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, registry)

	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer store.Close()

	bus := events.NewBus(logging.Component(logger, "events"))

	var subsystems []server.Subsystem
	if cfg.Scripts.Watch {
		subsystems = append(subsystems, scripts.NewWatcher(scripts.WatcherConfig{
			Dir:              resolvePath(cfg, cfg.Scripts.Directory),
			DebounceInterval: cfg.Scripts.DebounceInterval,
			Extensions:       cfg.Scripts.Extensions,
		}, bus, logging.Component(logger, "scripts.watcher")))
	}

	srv := server.New(cfg, server.Dependencies{
		Store:      store,
		Converters: storage.Converters(store),
		Subsystems: subsystems,
		Events:     bus,
		Metrics:    collector,
		Tracer:     tracer,
		Logger:     logger,
	}, server.WithBootID(bootID))

	ctx, stop := cli.SetupSignalHandler(cmd.Context(), logger)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	var adminSrv *admin.Server
	var adminErr <-chan error
	if cfg.Admin.Enabled {
		checker := health.New(cfg.Telemetry.Health.CheckTimeout, bootID)
		checker.RegisterCheck("server", srv.Health)

		adminSrv = admin.New(&cfg.Admin, &cfg.Telemetry, checker,
			admin.WithLogger(logging.Component(logger, "admin")),
			admin.WithMetrics(collector.Handler()),
			admin.WithVersion(Version, GitCommit, BuildDate),
		)
		if err := adminSrv.Start(ctx); err != nil {
			srv.Stop()
			return cli.NewCommandError("run", err)
		}
		adminErr = adminSrv.Err()
	}

	printBanner(cfg, srv, adminSrv)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-adminErr:
		logger.Error("admin server failed", "error", err)
	}

	return shutdown(cfg, logger, srv, adminSrv)
}

func shutdown(cfg *config.Config, logger *slog.Logger, srv *server.GameServer, adminSrv *admin.Server) error {
	if adminSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := adminSrv.Shutdown(ctx); err != nil {
			logger.Warn("admin shutdown incomplete", "error", err)
		}
	}

	if err := srv.Stop(); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Println("✓ Realm stopped")
	return nil
}

func printBanner(cfg *config.Config, srv *server.GameServer, adminSrv *admin.Server) {
	fmt.Println()
	fmt.Printf("✓ %s open (server type %s, boot %s)\n", cfg.Server.Name, cfg.Server.ServerType, srv.BootID())
	fmt.Printf("✓ TCP listening on %s\n", srv.Addr())
	if p := srv.Pipeline(); p != nil {
		fmt.Printf("✓ UDP listening on %s\n", p.LocalAddr())
	}
	if adminSrv != nil {
		fmt.Printf("✓ Health endpoint: http://%s%s\n", adminSrv.Addr(), cfg.Telemetry.Health.LivenessPath)
		if cfg.Telemetry.Metrics.Enabled {
			fmt.Printf("✓ Metrics endpoint: http://%s%s\n", adminSrv.Addr(), cfg.Telemetry.Metrics.Path)
		}
	}
	fmt.Println()
}
