package inject

import (
	"sync"
	"time"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/logging"
	"vikeyd/internal/metrics"
)

// Sender delivers a batch of synthetic events to the OS input stream. It
// returns how many events the OS accepted; a privileged target window may
// accept fewer than requested. The Windows implementation wraps SendInput.
type Sender interface {
	Send(events []KeyInput) (int, error)
}

// Injector executes one edit burst at a time: the deletion phase, a settle
// pause, then the insertion phase, with the per-policy gaps in between.
type Injector struct {
	mu     sync.Mutex
	sender Sender
	log    *logging.Logger

	// sleep is stubbed in tests.
	sleep func(time.Duration)

	// metrics is optional; nil disables accounting.
	metrics *metrics.Pipeline
}

// New creates an Injector over the given sender.
func New(sender Sender, log *logging.Logger) *Injector {
	return &Injector{
		sender: sender,
		log:    log.WithComponent("inject"),
		sleep:  time.Sleep,
	}
}

// SetMetrics attaches injection accounting. Call before the pipeline
// starts.
func (inj *Injector) SetMetrics(m *metrics.Pipeline) {
	inj.metrics = m
}

// Inject deletes backspaces preceding characters and inserts chars, using
// the timing and deletion method from policy. At most one burst executes at
// a time; the caller holds the pipeline's injection-in-progress flag for the
// duration of this call.
func (inj *Injector) Inject(backspaces int, chars []rune, policy appdetect.Policy) {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	if backspaces > 0 {
		var units [][]KeyInput
		if policy.Method == appdetect.MethodSelection {
			units = SelectionEvents(backspaces)
		} else {
			units = BackspaceEvents(backspaces)
		}
		inj.sendUnits(units, policy.BackspaceDelay)

		if len(chars) > 0 && policy.WaitDelay > 0 {
			inj.sleep(policy.WaitDelay)
		}
	}

	if len(chars) == 0 {
		return
	}

	if policy.CharDelay <= 0 {
		// No pacing required: one batch keeps the burst atomic.
		batch := make([]KeyInput, 0, len(chars)*2)
		for _, cp := range chars {
			batch = append(batch, CodePointEvents(cp)...)
		}
		inj.send(batch)
		return
	}

	for i, cp := range chars {
		if i > 0 {
			inj.sleep(policy.CharDelay)
		}
		inj.send(CodePointEvents(cp))
	}
}

// sendUnits sends each unit (a down/up pair or a lone modifier transition)
// separately with delay between them, or as one batch when unpaced.
func (inj *Injector) sendUnits(units [][]KeyInput, delay time.Duration) {
	if delay <= 0 {
		var batch []KeyInput
		for _, u := range units {
			batch = append(batch, u...)
		}
		inj.send(batch)
		return
	}

	for i, u := range units {
		if i > 0 {
			inj.sleep(delay)
		}
		inj.send(u)
	}
}

func (inj *Injector) send(events []KeyInput) {
	if len(events) == 0 {
		return
	}

	sent, err := inj.sender.Send(events)
	if err != nil {
		inj.log.Warn("synthetic input failed", "events", len(events), "error", err)
		return
	}
	if inj.metrics != nil {
		inj.metrics.Injected.Add(uint64(sent))
		if sent < len(events) {
			inj.metrics.PartialSends.Inc()
		}
	}
	if sent < len(events) {
		// UIPI: an elevated target window silently discards input from a
		// lower-privilege process. Not retried.
		inj.log.Warn("synthetic input partially accepted",
			"sent", sent,
			"requested", len(events),
		)
	}
}
