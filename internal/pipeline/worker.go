package pipeline

import (
	"sync/atomic"
	"time"

	"vikeyd/internal/keymap"
)

// idleSleep bounds worker CPU use when the queue is empty. 1ms keeps
// worst-case added latency well under a perceptible threshold.
const idleSleep = time.Millisecond

// Worker owns the dispatch goroutine: it drains the event queue, feeds the
// engine, and executes edits through the classifier and injector.
type Worker struct {
	p *Pipeline

	running atomic.Bool
	done    chan struct{}
}

// NewWorker creates a Worker over the pipeline. Call Start to begin
// dispatching.
func NewWorker(p *Pipeline) *Worker {
	return &Worker{p: p}
}

// Start launches the dispatch goroutine. No-op when already running.
func (w *Worker) Start() {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.done = make(chan struct{})
	go w.loop()
}

// Stop clears the running flag and waits for the goroutine to exit. The
// caller unhooks the listener first so production has already ceased; any
// events still queued are abandoned.
func (w *Worker) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	<-w.done
}

func (w *Worker) loop() {
	defer close(w.done)

	lockWorkerThread()
	defer unlockWorkerThread()

	for w.running.Load() {
		if !w.drain() {
			time.Sleep(idleSleep)
		}
	}
}

// drain processes every currently queued event and reports whether there
// was any.
func (w *Worker) drain() bool {
	var ev KeyEvent
	had := false
	for w.p.Queue.Pop(&ev) {
		had = true
		w.dispatch(ev)
	}
	return had
}

func (w *Worker) dispatch(ev KeyEvent) {
	code := keymap.ToEngineCode(ev.VK)
	if !keymap.Valid(code) {
		return
	}

	// The engine decodes and frees the native result before returning, so
	// nothing engine-owned survives this call.
	result := w.p.Engine.ProcessKey(code, ev.Caps, ev.Ctrl, ev.Shift)
	if !result.Edit() {
		return
	}

	w.p.Metrics.Edits.Inc()

	// Release-store before the burst, acquire-load in the hook: the hook
	// observing true is guaranteed to also observe a consistent queue.
	w.p.injecting.Store(true)
	policy := w.p.Classifier.Policy()
	w.p.Injector.Inject(int(result.Backspace), result.Chars, policy)
	w.p.injecting.Store(false)

	if ev.Time > 0 {
		w.p.Metrics.ObserveDispatchLatency(time.Duration(monotonicNow() - ev.Time))
	}
}

// monotonicNow is the capture clock; overridden in tests.
var monotonicNow = func() int64 { return time.Now().UnixNano() }
