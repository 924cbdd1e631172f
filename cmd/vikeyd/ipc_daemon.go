package main

import (
	"fmt"
	"sync"
	"time"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/config"
	"vikeyd/internal/engine"
	"vikeyd/internal/ipc"
	"vikeyd/internal/logging"
	"vikeyd/internal/metrics"
	"vikeyd/internal/shortcuts"
)

// daemonControl implements ipc.Daemon over the live components. IPC requests
// arrive on server goroutines while the worker owns the pipeline, so mutable
// daemon state sits behind a mutex; the engine and store handle their own
// synchronization.
type daemonControl struct {
	eng        engine.Engine
	store      *shortcuts.Store
	classifier *appdetect.Classifier
	metrics    *metrics.Pipeline
	log        *logging.Logger

	startedAt    time.Time
	engineLoaded bool

	mu      sync.Mutex
	enabled bool
	method  string

	shutdownOnce      sync.Once
	shutdownRequested chan struct{}
}

func newDaemonControl(
	cfg *config.Config,
	eng engine.Engine,
	store *shortcuts.Store,
	classifier *appdetect.Classifier,
	m *metrics.Pipeline,
	log *logging.Logger,
) *daemonControl {
	return &daemonControl{
		eng:               eng,
		store:             store,
		classifier:        classifier,
		metrics:           m,
		log:               log.WithComponent("control"),
		startedAt:         time.Now(),
		enabled:           cfg.Input.Enabled,
		method:            cfg.Input.Method,
		shutdownRequested: make(chan struct{}),
	}
}

func (d *daemonControl) Status() ipc.StatusResponse {
	d.mu.Lock()
	enabled, method := d.enabled, d.method
	d.mu.Unlock()

	resp := ipc.StatusResponse{
		Version:      version,
		UptimeSec:    int64(time.Since(d.startedAt).Seconds()),
		Enabled:      enabled,
		Method:       method,
		EngineLoaded: d.engineLoaded,
		Metrics:      d.metrics.Snapshot(),
	}
	if app, ok := d.classifier.Cached(); ok {
		resp.ForegroundApp = app.Name
	}
	return resp
}

func (d *daemonControl) SetEnabled(enabled bool) error {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()

	d.eng.SetEnabled(enabled)
	d.log.Info("transformation toggled", "enabled", enabled)
	return nil
}

func (d *daemonControl) SetMethod(method string) error {
	var m engine.Method
	switch method {
	case "telex":
		m = engine.MethodTelex
	case "vni":
		m = engine.MethodVNI
	default:
		return fmt.Errorf("unknown input method %q", method)
	}

	d.mu.Lock()
	d.method = method
	d.mu.Unlock()

	d.eng.SetMethod(m)
	d.log.Info("input method switched", "method", method)
	return nil
}

func (d *daemonControl) RestoreWord(word string) error {
	if word == "" {
		return fmt.Errorf("empty word")
	}
	d.eng.RestoreWord(word)
	return nil
}

// ReloadConfig re-reads the config file and applies the reloadable sections.
// The file watcher normally does this on its own; the IPC command exists for
// setups where file notifications are unreliable.
func (d *daemonControl) ReloadConfig() error {
	cfg, err := config.Load(configFileInUse())
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	d.applyConfig(cfg)
	return nil
}

// applyConfig pushes the reloadable config sections into the running daemon:
// engine options and per-app policy overrides. Queue size, socket path, and
// logging destinations require a restart.
func (d *daemonControl) applyConfig(cfg *config.Config) {
	d.mu.Lock()
	d.enabled = cfg.Input.Enabled
	d.method = cfg.Input.Method
	d.mu.Unlock()

	d.eng.Configure(cfg.Input.EngineOptions())
	d.classifier.SetOverrides(cfg.Injection.ClassifierOverrides())
	d.log.Info("config applied",
		"method", cfg.Input.Method,
		"enabled", cfg.Input.Enabled,
		"overrides", len(cfg.Injection.Overrides),
	)
}

func (d *daemonControl) ShortcutAdd(trigger, replacement string) error {
	if err := d.store.Add(trigger, replacement); err != nil {
		return err
	}
	d.eng.AddShortcut(trigger, replacement)
	return nil
}

func (d *daemonControl) ShortcutRemove(trigger string) error {
	if err := d.store.Remove(trigger); err != nil {
		return err
	}
	d.eng.RemoveShortcut(trigger)
	return nil
}

func (d *daemonControl) ShortcutList() ([]shortcuts.Shortcut, error) {
	return d.store.List()
}

func (d *daemonControl) ShortcutClear() error {
	if err := d.store.Clear(); err != nil {
		return err
	}
	d.eng.ClearShortcuts()
	return nil
}

func (d *daemonControl) ShortcutImport(format string, data []byte) (int, error) {
	var list []shortcuts.Shortcut
	var err error

	switch format {
	case "json":
		list, err = shortcuts.ImportJSON(data)
	case "yaml", "yml":
		list, err = shortcuts.ImportYAML(data)
	default:
		return 0, fmt.Errorf("unknown import format %q", format)
	}
	if err != nil {
		return 0, err
	}

	if err := d.store.Import(list); err != nil {
		return 0, err
	}
	if err := d.store.LoadInto(d.eng); err != nil {
		return 0, fmt.Errorf("reload shortcuts into engine: %w", err)
	}
	return len(list), nil
}

func (d *daemonControl) ShortcutExport() ([]byte, error) {
	list, err := d.store.List()
	if err != nil {
		return nil, err
	}
	return shortcuts.ExportYAML(list)
}

func (d *daemonControl) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdownRequested)
	})
}
