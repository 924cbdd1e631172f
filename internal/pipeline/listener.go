package pipeline

import (
	"vikeyd/internal/inject"
	"vikeyd/internal/keymap"
)

// HookVerdict is the hook callback's decision for one observed event. The
// hook never swallows keystrokes: physical keys always continue down the
// hook chain so the application still receives them, and composed edits are
// applied afterwards with backspaces. The verdict only controls whether the
// event also enters the pipeline.
type HookVerdict uint8

const (
	// VerdictEnqueue: a physical keydown the engine should see.
	VerdictEnqueue HookVerdict = iota
	// VerdictPassSynthetic: OS-injected input, including our own bursts.
	// Re-enqueueing these would loop the injector's output back through
	// the engine forever.
	VerdictPassSynthetic
	// VerdictPassInjecting: an event raced with an in-flight injection
	// burst; leave it alone rather than interleave with synthetic input.
	VerdictPassInjecting
	// VerdictPassIgnored: key-ups, modifiers, function/lock/system keys.
	VerdictPassIgnored
)

// HookEvent is the raw information the OS hands the hook callback.
type HookEvent struct {
	VK uint16
	// KeyDown is the transition direction.
	KeyDown bool
	// Injected is the OS "this is synthetic input" flag.
	Injected bool
	// ExtraInfo is the application-defined marker attached to the event.
	ExtraInfo uintptr
	// SysKey is true for Alt-modified transitions, which never carry
	// Vietnamese composition.
	SysKey bool
}

// Classify is the pure hook decision, shared by the Windows callback and
// the feedback-loop tests. It must stay allocation-free: it runs on the
// OS hook thread with a sub-millisecond budget.
func Classify(ev HookEvent, injecting bool) HookVerdict {
	// Synthetic input first: the OS flag catches all injectors, the marker
	// catches our own even if another hook strips the flag.
	if ev.Injected || ev.ExtraInfo == inject.Marker {
		return VerdictPassSynthetic
	}
	if injecting {
		return VerdictPassInjecting
	}
	if !ev.KeyDown || ev.SysKey || keymap.ShouldIgnore(ev.VK) {
		return VerdictPassIgnored
	}
	return VerdictEnqueue
}

// Offer runs the hook decision against the pipeline and enqueues the event
// when accepted. Queue overflow drops the event with a warning; the hook
// thread never blocks or retries.
func (p *Pipeline) Offer(ev HookEvent, state KeyEvent) HookVerdict {
	verdict := Classify(ev, p.injecting.Load())
	if verdict != VerdictEnqueue {
		return verdict
	}

	if p.Queue.Push(state) {
		p.Metrics.Captured.Inc()
	} else {
		// The worker has stalled for tens of milliseconds; losing the
		// keystroke is preferable to blocking the hook chain.
		p.Metrics.Dropped.Inc()
		p.Log.Warn("event queue full, keystroke dropped", "vk", state.VK)
	}
	return verdict
}
