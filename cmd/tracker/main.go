package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redtable/combat-tracker/internal/api"
	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/internal/dispatcher"
	"github.com/redtable/combat-tracker/internal/encounter"
	"github.com/redtable/combat-tracker/internal/handlers"
	"github.com/redtable/combat-tracker/internal/influx"
	"github.com/redtable/combat-tracker/internal/logging"
	"github.com/redtable/combat-tracker/internal/monitor"
	intOtel "github.com/redtable/combat-tracker/internal/otel"
	"github.com/redtable/combat-tracker/internal/parser"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/internal/worker"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	AppName = "combat_tracker"
)

const usage = `usage: tracker [serve | export <file> | send <command> [args...] | version]

Configuration is read from ` + config.FileName + ` in $TRACKER_CONFIG_DIR (default ".").
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = strings.ToLower(args[0]), args[1:]
	}

	configDir := os.Getenv("TRACKER_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	configErr := config.Load(configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, configErr)
	case "export":
		if len(args) != 1 {
			err = errors.New("export needs exactly one output file")
			break
		}
		err = runExport(ctx, config.GetStorageConfig(), config.GetString("encounterName"), args[0], cliLogger())
	case "send":
		err = runSend(os.Stdout, "http://"+config.GetString("api.listen"), args)
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		err = fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cliLogger logs one-shot commands to stderr at warn level.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func runServe(ctx context.Context, configErr error) error {
	start := time.Now()
	level := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")

	logFile, err := logging.OpenLogFile(logsDir, AppName, start)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: logging to stdout:", err)
	}
	var logOut io.Writer = os.Stdout
	if logFile != nil {
		logOut = logFile
		defer logFile.Close()
	}

	gelfAddr := ""
	if config.GetBool("graylog.enabled") {
		gelfAddr = config.GetString("graylog.address")
	}
	slogManager := logging.NewSlogManager()
	if err := slogManager.Setup(logOut, level, gelfAddr); err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}
	defer slogManager.Close()

	enc := encounter.NewContext(config.GetString("encounterName"))
	logger := logging.WithContext(slogManager.Logger(), enc.LogAttrs)
	logger.Info("Starting combat tracker", "version", Version, "build", BuildDate)
	if configErr != nil {
		logger.Warn("Using default configuration", "error", configErr)
	}

	// Metrics
	otelCfg := config.GetOTelConfig()
	var metricsOut io.Writer
	if otelCfg.Enabled {
		f, err := logging.OpenLogFile(logsDir, AppName+".metrics", start)
		if err != nil {
			return fmt.Errorf("metrics file: %w", err)
		}
		defer f.Close()
		metricsOut = f
	}
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ExportInterval: otelCfg.ExportInterval,
		MetricWriter:   metricsOut,
	})
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("OTel shutdown failed", "error", err)
		}
	}()

	// Storage
	backend, err := newBackend(config.GetStorageConfig(), enc.Name(), logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}

	// Hit telemetry
	zl := logging.NewZerolog(logOut, level)
	var reporter handlers.HitReporter
	influxManager := influx.NewManager(zl, config.GetInfluxConfig(),
		logging.LogFilePath(logsDir, AppName+".hits", start)+".lp.gz")
	influxManager.Encounter = enc.Name()
	switch err := influxManager.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		logger.Warn("InfluxDB unavailable, hits are not reported", "error", err)
	default:
		reporter = influxManager
		defer influxManager.Close()
	}

	roller := dice.New(uint64(config.GetInt("dice.seed")))
	svc := handlers.NewService(handlers.Dependencies{
		Store:     tracker.New(logger, roller),
		Parser:    parser.NewParser(logger, roller),
		Backend:   backend,
		Reporter:  reporter,
		Encounter: enc,
		Logger:    logger,
	})
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	if n, err := svc.Restore(ctx); err != nil {
		logger.Warn("Starting with an empty encounter", "error", err)
	} else if n > 0 {
		logger.Info("Previous encounter restored", "combatants", n)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(zl))
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	defer d.Close()
	worker.NewManager(svc, logger).RegisterHandlers(d)
	logger.Info("Commands registered", "commands", d.Commands())

	mon := monitor.NewService(monitor.Dependencies{
		Service:    svc,
		Backend:    backend,
		Commands:   d,
		StatusPath: filepath.Join(logsDir, "status.json"),
		Interval:   config.GetDuration("monitor.interval"),
		Logger:     logger,
		Started:    start,
	})
	mon.Start()
	defer mon.Stop()

	srv := api.NewServer(d, logger).WithStatus(func() any { return mon.GetStatus() })
	if err := srv.ListenAndServe(ctx, config.GetString("api.listen")); err != nil {
		return err
	}
	logger.Info("Shutting down", "uptime", time.Since(start).Round(time.Second))
	return nil
}
