// vikeyd is the Vietnamese input daemon: it installs a low-level keyboard
// hook, feeds keystrokes through the transformation engine, and injects the
// composed text into the foreground application.
//
//	vikeyd                 Run the daemon
//	vikeyd -config <path>  Run with an explicit config file
//	vikeyd -version        Print the version and exit
//
// Runtime control (enable/disable, method switch, shortcuts) goes through
// vikeyctl over the local control channel.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/config"
	"vikeyd/internal/engine"
	"vikeyd/internal/hook"
	"vikeyd/internal/inject"
	"vikeyd/internal/ipc"
	"vikeyd/internal/logging"
	"vikeyd/internal/metrics"
	"vikeyd/internal/pipeline"
	"vikeyd/internal/shortcuts"
)

const version = "0.3.0"

var (
	configPath  = flag.String("config", "", "path to config file")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("vikeyd %s\n", version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vikeyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, created, err := config.LoadOrCreate(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer log.Close()
	logging.SetDefault(log)

	log.Info("starting", "version", version, "config", configFileInUse())
	if created {
		log.Info("created default config", "path", configFileInUse())
	}

	store, err := shortcuts.Open(cfg.Shortcuts.StorePath)
	if err != nil {
		return fmt.Errorf("open shortcut store: %w", err)
	}
	defer store.Close()

	eng := engine.New(cfg.Engine.LibraryPath, log)
	engineLoaded := true
	if err := eng.Init(); err != nil {
		// Keystrokes pass through untransformed until the library appears
		// after a config reload.
		engineLoaded = false
		log.Warn("transformation engine unavailable, passing keystrokes through", "error", err)
	}
	defer eng.Close()

	eng.Configure(cfg.Input.EngineOptions())
	if err := store.LoadInto(eng); err != nil {
		log.Warn("loading shortcuts into engine failed", "error", err)
	}

	m := metrics.NewPipeline()

	classifier := appdetect.NewClassifier(appdetect.NewForegroundReader(), cfg.Injection.CacheTTL(), log)
	classifier.SetMetrics(m)
	classifier.SetOverrides(cfg.Injection.ClassifierOverrides())

	injector := inject.New(inject.NewSender(), log)
	injector.SetMetrics(m)

	p := pipeline.New(cfg.Injection.QueueSize, eng, classifier, injector, m, log)

	worker := pipeline.NewWorker(p)
	worker.Start()
	defer worker.Stop()

	focus := appdetect.NewFocusWatcher(classifier, log)
	if err := focus.Start(); err != nil {
		log.Warn("focus watcher unavailable, relying on policy cache TTL", "error", err)
	} else {
		defer focus.Stop()
	}

	// Without the hook there is no input to process; refuse to run as a
	// silent no-op.
	listener := hook.New(p, log)
	if err := listener.Start(); err != nil {
		return fmt.Errorf("install keyboard hook: %w", err)
	}
	defer listener.Stop()

	control := newDaemonControl(cfg, eng, store, classifier, m, log)
	control.engineLoaded = engineLoaded

	if cfg.IPC.Enabled {
		server := ipc.NewServer(
			cfg.IPC.SocketPath,
			time.Duration(cfg.IPC.TimeoutSec)*time.Second,
			control,
			log,
		)
		if err := server.Start(); err != nil {
			return fmt.Errorf("start control channel: %w", err)
		}
		defer server.Stop()
	}

	watcher, err := config.NewWatcher(configFileInUse())
	if err != nil {
		log.Warn("config watcher unavailable, hot reload disabled", "error", err)
	} else {
		watcher.OnChange(control.applyConfig)
		if err := watcher.Start(); err != nil {
			log.Warn("config watch failed, hot reload disabled", "error", err)
		} else {
			defer watcher.Close()
			go func() {
				for err := range watcher.Errors() {
					log.Warn("config reload rejected", "error", err)
				}
			}()
		}
	}

	log.Info("ready",
		"method", cfg.Input.Method,
		"enabled", cfg.Input.Enabled,
		"queue_size", cfg.Injection.QueueSize,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info("signal received, shutting down", "signal", s.String())
	case <-control.shutdownRequested:
		log.Info("shutdown requested over control channel")
	}

	// Deferred teardown runs in reverse: config watcher, IPC server, hook,
	// focus watcher, worker, engine, store, logger. The hook stops before
	// the worker so production ceases first.
	return nil
}

// configFileInUse resolves the effective config path for logging and the
// watcher.
func configFileInUse() string {
	if *configPath != "" {
		return *configPath
	}
	return config.ConfigPath()
}

func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}

	return logging.New(&logging.Config{
		Level:        level,
		Format:       format,
		Output:       cfg.Logging.Output,
		FilePath:     cfg.Logging.FilePath,
		MaxSize:      int64(cfg.Logging.MaxSizeMB),
		MaxAge:       cfg.Logging.MaxAgeDays,
		MaxBackups:   cfg.Logging.MaxBackups,
		Compress:     cfg.Logging.Compress,
		LogTypedText: cfg.Logging.LogTypedText,
		Component:    "vikeyd",
	})
}
