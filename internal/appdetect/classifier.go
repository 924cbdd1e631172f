package appdetect

import (
	"strings"
	"sync"
	"time"

	"vikeyd/internal/logging"
	"vikeyd/internal/metrics"
)

// ForegroundApp identifies the process owning the foreground window.
type ForegroundApp struct {
	// Name is the process image name, e.g. "chrome.exe".
	Name string
	// PID is the process id.
	PID uint32
}

// ForegroundReader reads the current foreground application. The Windows
// implementation lives in foreground_windows.go; tests substitute fakes.
type ForegroundReader interface {
	Foreground() (ForegroundApp, error)
}

// DefaultTTL bounds how long a resolved policy is trusted without a focus
// notification. Foreground changes inside one process (tab switches) do not
// fire the focus hook, so the cache also ages out on its own.
const DefaultTTL = 200 * time.Millisecond

// Classifier resolves the injection policy for the foreground app with a
// TTL cache. The worker goroutine calls Policy on every edit; the focus
// watcher calls Invalidate from its own thread, so the cache sits behind a
// mutex. Contention is rare and the critical section is a few loads.
type Classifier struct {
	reader ForegroundReader
	ttl    time.Duration
	log    *logging.Logger

	// now is stubbed in tests.
	now func() time.Time

	// metrics is optional; nil disables cache accounting.
	metrics *metrics.Pipeline

	mu        sync.Mutex
	overrides map[string]Policy
	cached    cacheEntry
}

type cacheEntry struct {
	valid      bool
	pid        uint32
	name       string
	policy     Policy
	resolvedAt time.Time
}

// NewClassifier creates a Classifier over the given reader. A zero ttl uses
// DefaultTTL.
func NewClassifier(reader ForegroundReader, ttl time.Duration, log *logging.Logger) *Classifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Classifier{
		reader:    reader,
		ttl:       ttl,
		log:       log.WithComponent("appdetect"),
		now:       time.Now,
		overrides: make(map[string]Policy),
	}
}

// SetMetrics attaches cache accounting. Call before the pipeline starts.
func (c *Classifier) SetMetrics(m *metrics.Pipeline) {
	c.metrics = m
}

// SetOverrides replaces the per-app policy overrides (from config).
func (c *Classifier) SetOverrides(overrides []Override) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.overrides = make(map[string]Policy, len(overrides))
	for _, o := range overrides {
		c.overrides[strings.ToLower(o.Process)] = o.Policy
	}
	c.cached = cacheEntry{}
}

// Policy returns the injection policy for the current foreground app. A
// cached entry within the TTL is returned as-is; resolution failures fall
// back to the default policy without failing the keystroke.
func (c *Classifier) Policy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cached.valid && now.Sub(c.cached.resolvedAt) < c.ttl {
		if c.metrics != nil {
			c.metrics.CacheHits.Inc()
		}
		return c.cached.policy
	}
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}

	app, err := c.reader.Foreground()
	if err != nil {
		c.cached = cacheEntry{}
		c.log.Debug("foreground resolution failed, using default policy", "error", err)
		return DefaultPolicy()
	}

	pol, source := c.resolveLocked(app.Name)
	c.cached = cacheEntry{
		valid:      true,
		pid:        app.PID,
		name:       app.Name,
		policy:     pol,
		resolvedAt: now,
	}
	c.log.Debug("policy resolved",
		"process", app.Name,
		"pid", app.PID,
		"method", pol.Method.String(),
		"source", source,
	)
	return pol
}

func (c *Classifier) resolveLocked(name string) (Policy, string) {
	if pol, ok := c.overrides[strings.ToLower(name)]; ok {
		return pol, "override"
	}
	return ClassifyProcess(name), "table"
}

// Invalidate drops the cached entry. Called on foreground-window and
// input-focus change notifications so a stale policy is never used for the
// first keystroke in a newly focused window.
func (c *Classifier) Invalidate() {
	c.mu.Lock()
	c.cached = cacheEntry{}
	c.mu.Unlock()
}

// Cached returns the cached app identity for diagnostics, and whether the
// cache currently holds a live entry.
func (c *Classifier) Cached() (ForegroundApp, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cached.valid || c.now().Sub(c.cached.resolvedAt) >= c.ttl {
		return ForegroundApp{}, false
	}
	return ForegroundApp{Name: c.cached.name, PID: c.cached.pid}, true
}
