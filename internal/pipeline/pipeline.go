// Package pipeline connects the keyboard hook to the transformation engine
// and the text injector. The hook thread classifies and enqueues raw key
// events; a dedicated worker drains the queue, consults the engine, and
// executes edits. The two sides share exactly one lock-free queue and one
// atomic injection-in-progress flag.
package pipeline

import (
	"sync/atomic"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/engine"
	"vikeyd/internal/inject"
	"vikeyd/internal/logging"
	"vikeyd/internal/metrics"
	"vikeyd/internal/queue"
)

// KeyEvent is one physical keydown captured by the hook. Immutable; produced
// once by the hook thread, consumed exactly once by the worker.
type KeyEvent struct {
	// VK is the Windows virtual-key code.
	VK uint16
	// KeyDown is true for key-press transitions.
	KeyDown bool
	// Caps is the CapsLock toggle state at capture time.
	Caps bool
	// Ctrl and Shift are the modifier states at capture time.
	Ctrl  bool
	Shift bool
	// Time is a monotonic capture timestamp in nanoseconds, for latency
	// diagnostics only.
	Time int64
}

// Pipeline is the explicit wiring context: every stage receives it instead
// of reaching for process-wide singletons, so tests assemble pipelines from
// fakes.
type Pipeline struct {
	Queue      *queue.Ring[KeyEvent]
	Engine     engine.Engine
	Classifier *appdetect.Classifier
	Injector   *inject.Injector
	Metrics    *metrics.Pipeline
	Log        *logging.Logger

	// injecting is true for the duration of one synthesize-and-send burst.
	// The worker release-stores it before injecting; the hook acquire-loads
	// it to short-circuit processing of self-generated events.
	injecting atomic.Bool
}

// New assembles a Pipeline with a queue of the given capacity.
func New(capacity int, eng engine.Engine, classifier *appdetect.Classifier, injector *inject.Injector, m *metrics.Pipeline, log *logging.Logger) *Pipeline {
	if capacity <= 0 {
		capacity = queue.DefaultCapacity
	}
	return &Pipeline{
		Queue:      queue.New[KeyEvent](capacity),
		Engine:     eng,
		Classifier: classifier,
		Injector:   injector,
		Metrics:    m,
		Log:        log.WithComponent("pipeline"),
	}
}

// Injecting reports whether an injection burst is in flight.
func (p *Pipeline) Injecting() bool {
	return p.injecting.Load()
}
