package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/engine"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, "telex", cfg.Input.Method)
	assert.True(t, cfg.Input.Enabled)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Input, cfg.Input)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Input.Method = "vni"
	cfg.Input.AutoCapitalize = true
	cfg.Injection.CacheTTLMs = 350
	cfg.Injection.Overrides = []AppOverride{
		{Process: "chrome.exe", Method: "selection", CharDelayUs: 900},
	}
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "vni", loaded.Input.Method)
	assert.True(t, loaded.Input.AutoCapitalize)
	assert.Equal(t, 350, loaded.Injection.CacheTTLMs)
	require.Len(t, loaded.Injection.Overrides, 1)
	assert.Equal(t, "chrome.exe", loaded.Injection.Overrides[0].Process)
}

func TestLoadOrCreateWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, cfg.Validate())

	_, err = os.Stat(path)
	assert.NoError(t, err)

	_, created, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad method", func(c *Config) { c.Input.Method = "wubi" }, "input.method"},
		{"zero ttl", func(c *Config) { c.Injection.CacheTTLMs = 0 }, "injection.cache_ttl_ms"},
		{"tiny queue", func(c *Config) { c.Injection.QueueSize = 1 }, "injection.queue_size"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty socket", func(c *Config) { c.IPC.SocketPath = "" }, "ipc.socket_path"},
		{
			"bad override method",
			func(c *Config) {
				c.Injection.Overrides = []AppOverride{{Process: "x.exe", Method: "warp"}}
			},
			"injection.overrides[0].method",
		},
		{
			"negative override delay",
			func(c *Config) {
				c.Injection.Overrides = []AppOverride{
					{Process: "x.exe", Method: "fast", WaitDelayUs: -1},
				}
			},
			"injection.overrides[0].wait_delay_us",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestEngineOptions(t *testing.T) {
	in := InputConfig{
		Method:             "vni",
		Enabled:            true,
		ModernTone:         true,
		EnglishAutoRestore: true,
	}
	opts := in.EngineOptions()

	assert.Equal(t, engine.MethodVNI, opts.Method)
	assert.True(t, opts.Enabled)
	assert.True(t, opts.ModernTone)
	assert.False(t, opts.AutoCapitalize)
}

func TestClassifierOverrides(t *testing.T) {
	inj := InjectionConfig{
		Overrides: []AppOverride{
			{Process: "chrome.exe", Method: "selection", BackspaceDelayUs: 1000},
		},
	}
	overrides := inj.ClassifierOverrides()

	require.Len(t, overrides, 1)
	assert.Equal(t, "chrome.exe", overrides[0].Process)
	assert.Equal(t, appdetect.MethodSelection, overrides[0].Policy.Method)
	assert.Equal(t, time.Millisecond, overrides[0].Policy.BackspaceDelay)
	// Unset gaps inherit the defaults.
	assert.Equal(t, appdetect.DefaultPolicy().WaitDelay, overrides[0].Policy.WaitDelay)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("VIKEYD_LOG_LEVEL", "debug")
	t.Setenv("VIKEYD_ENGINE_LIBRARY", `C:\custom\vikey_core.dll`)

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, `C:\custom\vikey_core.dll`, cfg.Engine.LibraryPath)
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(DefaultConfig(), path))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	reloaded := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, w.Start())

	updated := DefaultConfig()
	updated.Input.Method = "vni"
	require.NoError(t, Save(updated, path))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "vni", cfg.Input.Method)
		assert.Equal(t, "vni", w.Config().Input.Method)
	case <-time.After(5 * time.Second):
		t.Fatal("reload not observed")
	}
}

func TestWatcherKeepsOldConfigOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(DefaultConfig(), path))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[input]\nmethod = \"wubi\"\n"), 0o600))

	select {
	case err := <-w.Errors():
		assert.Contains(t, err.Error(), "input.method")
		assert.Equal(t, "telex", w.Config().Input.Method)
	case <-time.After(5 * time.Second):
		t.Fatal("reload error not observed")
	}
}
