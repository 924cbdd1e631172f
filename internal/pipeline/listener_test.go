package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vikeyd/internal/inject"
	"vikeyd/internal/keymap"
)

func TestClassifyPhysicalKeydown(t *testing.T) {
	v := Classify(HookEvent{VK: 'A', KeyDown: true}, false)
	assert.Equal(t, VerdictEnqueue, v)
}

func TestClassifyOSInjectedFlag(t *testing.T) {
	v := Classify(HookEvent{VK: 'A', KeyDown: true, Injected: true}, false)
	assert.Equal(t, VerdictPassSynthetic, v)
}

func TestClassifyOwnMarker(t *testing.T) {
	// Even if another hook downstream strips the injected flag, our marker
	// still identifies the event as self-generated.
	v := Classify(HookEvent{VK: keymap.VKBack, KeyDown: true, ExtraInfo: inject.Marker}, false)
	assert.Equal(t, VerdictPassSynthetic, v)
}

func TestClassifyDuringInjection(t *testing.T) {
	v := Classify(HookEvent{VK: 'A', KeyDown: true}, true)
	assert.Equal(t, VerdictPassInjecting, v)
}

func TestClassifyKeyUp(t *testing.T) {
	v := Classify(HookEvent{VK: 'A', KeyDown: false}, false)
	assert.Equal(t, VerdictPassIgnored, v)
}

func TestClassifyModifiersAndSysKeys(t *testing.T) {
	for _, vk := range []uint16{keymap.VKShift, keymap.VKControl, keymap.VKLWin, keymap.VKF1} {
		v := Classify(HookEvent{VK: vk, KeyDown: true}, false)
		assert.Equal(t, VerdictPassIgnored, v, "vk %#x", vk)
	}

	v := Classify(HookEvent{VK: 'A', KeyDown: true, SysKey: true}, false)
	assert.Equal(t, VerdictPassIgnored, v)
}

// TestNoFeedbackLoop round-trips the injector's own output through the hook
// decision: none of it may be re-enqueued, no matter how often it loops.
func TestNoFeedbackLoop(t *testing.T) {
	burst := inject.BackspaceEvents(2)
	for _, cp := range []rune{0x1EA1, 0x1F600} {
		burst = append(burst, inject.CodePointEvents(cp))
	}

	for round := 0; round < 3; round++ {
		for _, unit := range burst {
			for _, ev := range unit {
				hookEv := HookEvent{
					VK:        ev.VK,
					KeyDown:   !ev.Up(),
					Injected:  true,
					ExtraInfo: inject.Marker,
				}
				assert.Equal(t, VerdictPassSynthetic, Classify(hookEv, false))

				// Same verdict even if the OS flag were lost.
				hookEv.Injected = false
				assert.Equal(t, VerdictPassSynthetic, Classify(hookEv, false))
			}
		}
	}
}

func TestOfferEnqueues(t *testing.T) {
	p := newTestPipeline(t, &fakeEngine{}, &fakeReader{})

	v := p.Offer(
		HookEvent{VK: 'A', KeyDown: true},
		KeyEvent{VK: 'A', KeyDown: true},
	)

	assert.Equal(t, VerdictEnqueue, v)
	assert.Equal(t, 1, p.Queue.Len())
	assert.Equal(t, uint64(1), p.Metrics.Captured.Value())
}

func TestOfferDropsOnFullQueue(t *testing.T) {
	p := newTestPipeline(t, &fakeEngine{}, &fakeReader{})

	for p.Queue.Push(KeyEvent{VK: 'X', KeyDown: true}) {
	}

	v := p.Offer(
		HookEvent{VK: 'A', KeyDown: true},
		KeyEvent{VK: 'A', KeyDown: true},
	)

	// Still classified for enqueueing; the event itself is lost.
	assert.Equal(t, VerdictEnqueue, v)
	assert.Equal(t, uint64(1), p.Metrics.Dropped.Value())
}

func TestOfferSkipsWhileInjecting(t *testing.T) {
	p := newTestPipeline(t, &fakeEngine{}, &fakeReader{})
	p.injecting.Store(true)

	v := p.Offer(
		HookEvent{VK: 'A', KeyDown: true},
		KeyEvent{VK: 'A', KeyDown: true},
	)

	assert.Equal(t, VerdictPassInjecting, v)
	assert.True(t, p.Queue.Empty())
}
