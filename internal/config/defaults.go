package config

import (
	"os"
	"path/filepath"
	"runtime"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/queue"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Input: InputConfig{
			Method:             "telex",
			Enabled:            true,
			ModernTone:         true,
			SkipWShortcut:      false,
			BracketShortcut:    false,
			EscRestore:         true,
			EnglishAutoRestore: true,
			AutoCapitalize:     false,
		},
		Engine: EngineConfig{
			LibraryPath: "",
		},
		Injection: InjectionConfig{
			CacheTTLMs: int(appdetect.DefaultTTL.Milliseconds()),
			QueueSize:  queue.DefaultCapacity,
		},
		Shortcuts: ShortcutsConfig{
			StorePath: filepath.Join(dir, "shortcuts.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "file",
			FilePath:   filepath.Join(dir, "logs", "vikeyd.log"),
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: defaultSocketPath(),
			TimeoutSec: 10,
		},
	}
}

// platformDataDir returns the platform-specific vikeyd data directory.
func platformDataDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		return filepath.Join(appData, "vikeyd")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "vikeyd")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "vikeyd")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "vikeyd")
	}
}

func defaultSocketPath() string {
	switch runtime.GOOS {
	case "windows":
		return `\\.\pipe\vikeyd`
	case "darwin":
		return filepath.Join(DataDir(), "vikeyd.sock")
	default:
		if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
			return filepath.Join(xdgRuntime, "vikeyd.sock")
		}
		return "/tmp/vikeyd.sock"
	}
}
