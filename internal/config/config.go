// Package config handles configuration loading, validation, and hot reload
// for vikeyd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/engine"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version"`

	// Input holds the typing method and composition feature toggles.
	Input InputConfig `toml:"input" json:"input"`

	// Engine holds the native transformation library settings.
	Engine EngineConfig `toml:"engine" json:"engine"`

	// Injection holds pipeline and text-injection settings.
	Injection InjectionConfig `toml:"injection" json:"injection"`

	// Shortcuts holds the text-expansion store settings.
	Shortcuts ShortcutsConfig `toml:"shortcuts" json:"shortcuts"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// IPC configuration for the control channel.
	IPC IPCConfig `toml:"ipc" json:"ipc"`
}

// InputConfig holds the typing method and feature toggles pushed into the
// transformation engine.
type InputConfig struct {
	// Method is the input convention: "telex" or "vni".
	Method string `toml:"method" json:"method"`

	// Enabled toggles Vietnamese transformation globally.
	Enabled bool `toml:"enabled" json:"enabled"`

	// ModernTone places tone marks with the modern orthography (hòa, not hoà).
	ModernTone bool `toml:"modern_tone" json:"modern_tone"`

	// SkipWShortcut disables the lone-w shortcut in Telex.
	SkipWShortcut bool `toml:"skip_w_shortcut" json:"skip_w_shortcut"`

	// BracketShortcut enables [ and ] for ơ and ư in Telex.
	BracketShortcut bool `toml:"bracket_shortcut" json:"bracket_shortcut"`

	// EscRestore restores the raw keystrokes of the current word on Esc.
	EscRestore bool `toml:"esc_restore" json:"esc_restore"`

	// EnglishAutoRestore restores words that cannot be Vietnamese.
	EnglishAutoRestore bool `toml:"english_auto_restore" json:"english_auto_restore"`

	// AutoCapitalize capitalizes the first word of a sentence.
	AutoCapitalize bool `toml:"auto_capitalize" json:"auto_capitalize"`
}

// EngineConfig holds the native library settings.
type EngineConfig struct {
	// LibraryPath overrides the transformation library location. Empty uses
	// the default system search path.
	LibraryPath string `toml:"library_path" json:"library_path"`
}

// InjectionConfig holds pipeline and injection tuning.
type InjectionConfig struct {
	// CacheTTLMs is the foreground-policy cache lifetime in milliseconds.
	CacheTTLMs int `toml:"cache_ttl_ms" json:"cache_ttl_ms"`

	// QueueSize is the event queue capacity. One slot is reserved, so the
	// queue holds QueueSize-1 events.
	QueueSize int `toml:"queue_size" json:"queue_size"`

	// Overrides are per-application policy overrides, taking precedence
	// over the built-in application tables.
	Overrides []AppOverride `toml:"overrides" json:"overrides"`
}

// AppOverride is one user-configured injection policy. Delays are in
// microseconds; zero keeps the default for that gap.
type AppOverride struct {
	// Process is the process image name, e.g. "chrome.exe".
	Process string `toml:"process" json:"process"`

	// Method is "fast", "slow", or "selection".
	Method string `toml:"method" json:"method"`

	BackspaceDelayUs int `toml:"backspace_delay_us" json:"backspace_delay_us"`
	WaitDelayUs      int `toml:"wait_delay_us" json:"wait_delay_us"`
	CharDelayUs      int `toml:"char_delay_us" json:"char_delay_us"`
}

// ShortcutsConfig holds the text-expansion store settings.
type ShortcutsConfig struct {
	// StorePath is the path to the shortcut database.
	StorePath string `toml:"store_path" json:"store_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format"`

	// Output is "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output"`

	// FilePath is the log file path when Output includes "file".
	FilePath string `toml:"file_path" json:"file_path"`

	MaxSizeMB  int  `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int  `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days" json:"max_age_days"`
	Compress   bool `toml:"compress" json:"compress"`

	// LogTypedText disables redaction of composed-text log attributes.
	// Local debugging only.
	LogTypedText bool `toml:"log_typed_text" json:"log_typed_text"`
}

// IPCConfig holds control-channel configuration.
type IPCConfig struct {
	// Enabled determines whether the control channel is served.
	Enabled bool `toml:"enabled" json:"enabled"`

	// SocketPath is the unix socket path, or the named pipe name on Windows.
	SocketPath string `toml:"socket_path" json:"socket_path"`

	// TimeoutSec is the per-request read/write timeout in seconds.
	TimeoutSec int `toml:"timeout_sec" json:"timeout_sec"`
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// DataDir returns the base vikeyd data directory, honoring the
// VIKEYD_DATA_DIR override.
func DataDir() string {
	if envDir := os.Getenv("VIKEYD_DATA_DIR"); envDir != "" {
		return envDir
	}
	return platformDataDir()
}

// Load reads configuration from the specified path. A missing file yields
// the defaults; an empty path uses ConfigPath.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decode TOML: %w", err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// LoadOrCreate loads the configuration, writing a default config file first
// when none exists. The second return reports whether the file was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(cfg, path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		cfg.ApplyEnvOverrides()
		return cfg, true, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// Save writes the configuration as TOML. The write is atomic: a temp file in
// the same directory is renamed over the target.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("encode TOML: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies VIKEYD_-prefixed environment overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VIKEYD_ENGINE_LIBRARY"); v != "" {
		c.Engine.LibraryPath = v
	}
	if v := os.Getenv("VIKEYD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VIKEYD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("VIKEYD_SOCKET_PATH"); v != "" {
		c.IPC.SocketPath = v
	}
	if v := os.Getenv("VIKEYD_SHORTCUT_STORE"); v != "" {
		c.Shortcuts.StorePath = v
	}
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Shortcuts.StorePath),
		filepath.Dir(c.Logging.FilePath),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// EngineOptions converts the input section into engine options.
func (c *InputConfig) EngineOptions() engine.Options {
	method := engine.MethodTelex
	if c.Method == "vni" {
		method = engine.MethodVNI
	}
	return engine.Options{
		Method:             method,
		Enabled:            c.Enabled,
		ModernTone:         c.ModernTone,
		SkipWShortcut:      c.SkipWShortcut,
		BracketShortcut:    c.BracketShortcut,
		EscRestore:         c.EscRestore,
		EnglishAutoRestore: c.EnglishAutoRestore,
		AutoCapitalize:     c.AutoCapitalize,
	}
}

// CacheTTL returns the policy cache lifetime as a duration.
func (c *InjectionConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMs) * time.Millisecond
}

// ClassifierOverrides converts the configured overrides into classifier
// overrides. Unset delays inherit the default policy's gaps.
func (c *InjectionConfig) ClassifierOverrides() []appdetect.Override {
	overrides := make([]appdetect.Override, 0, len(c.Overrides))
	for _, o := range c.Overrides {
		method, _ := appdetect.ParseMethod(o.Method)
		pol := appdetect.DefaultPolicy()
		pol.Method = method
		if o.BackspaceDelayUs > 0 {
			pol.BackspaceDelay = time.Duration(o.BackspaceDelayUs) * time.Microsecond
		}
		if o.WaitDelayUs > 0 {
			pol.WaitDelay = time.Duration(o.WaitDelayUs) * time.Microsecond
		}
		if o.CharDelayUs > 0 {
			pol.CharDelay = time.Duration(o.CharDelayUs) * time.Microsecond
		}
		overrides = append(overrides, appdetect.Override{
			Process: o.Process,
			Policy:  pol,
		})
	}
	return overrides
}
