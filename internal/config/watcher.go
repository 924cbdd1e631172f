package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration when the file changes on disk. A reload
// that fails to parse or validate is reported on Errors and the previous
// configuration stays active.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	errChan chan error
	stop    chan struct{}

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)
}

// debounceDelay coalesces the event bursts editors produce on save.
const debounceDelay = 100 * time.Millisecond

// NewWatcher creates a watcher for the given config path, loading the file
// once up front.
func NewWatcher(path string) (*Watcher, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &Watcher{
		path:    path,
		config:  cfg,
		errChan: make(chan error, 1),
		stop:    make(chan struct{}),
	}, nil
}

// Config returns the currently active configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnChange registers a callback invoked with each successfully reloaded
// configuration. Register all callbacks before Start.
func (w *Watcher) OnChange(cb func(*Config)) {
	w.onChange = append(w.onChange, cb)
}

// Errors returns a channel carrying reload failures.
func (w *Watcher) Errors() <-chan error {
	return w.errChan
}

// Start begins watching the configuration file for changes.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher

	// Watch the directory: editors typically replace the file, which would
	// orphan a watch on the file itself.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	var debounce *time.Timer

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.report(fmt.Errorf("reload config: %w", err))
		return
	}
	if err := cfg.Validate(); err != nil {
		w.report(fmt.Errorf("validate reloaded config: %w", err))
		return
	}

	w.mu.Lock()
	w.config = cfg
	w.mu.Unlock()

	for _, cb := range w.onChange {
		cb(cfg)
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errChan <- err:
	default:
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	close(w.stop)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
