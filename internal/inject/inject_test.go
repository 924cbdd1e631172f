package inject

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vikeyd/internal/appdetect"
	"vikeyd/internal/keymap"
	"vikeyd/internal/logging"
)

// recordingSender captures every batch handed to the OS.
type recordingSender struct {
	batches [][]KeyInput
	// accept limits how many events each Send reports as accepted;
	// 0 means accept everything.
	accept int
}

func (r *recordingSender) Send(events []KeyInput) (int, error) {
	batch := make([]KeyInput, len(events))
	copy(batch, events)
	r.batches = append(r.batches, batch)
	if r.accept > 0 && r.accept < len(events) {
		return r.accept, nil
	}
	return len(events), nil
}

func (r *recordingSender) all() []KeyInput {
	var out []KeyInput
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func newTestInjector(sender Sender) *Injector {
	inj := New(sender, logging.Default())
	inj.sleep = func(time.Duration) {}
	return inj
}

func TestCodePointEventsBMP(t *testing.T) {
	events := CodePointEvents(0x1EA1) // ạ

	require.Len(t, events, 2)
	assert.Equal(t, KeyInput{Scan: 0x1EA1, Flags: FlagUnicode}, events[0])
	assert.Equal(t, KeyInput{Scan: 0x1EA1, Flags: FlagUnicode | FlagKeyUp}, events[1])
}

func TestCodePointEventsSurrogatePair(t *testing.T) {
	// U+1F600 GRINNING FACE: high 0xD83D, low 0xDE00.
	events := CodePointEvents(0x1F600)

	require.Len(t, events, 4)
	assert.Equal(t, uint16(0xD83D), events[0].Scan)
	assert.False(t, events[0].Up())
	assert.Equal(t, uint16(0xD83D), events[1].Scan)
	assert.True(t, events[1].Up())
	assert.Equal(t, uint16(0xDE00), events[2].Scan)
	assert.False(t, events[2].Up())
	assert.Equal(t, uint16(0xDE00), events[3].Scan)
	assert.True(t, events[3].Up())

	for _, ev := range events {
		assert.True(t, ev.Unicode())
		assert.Zero(t, ev.VK)
	}
}

func TestCodePointEventsSurrogateBoundaries(t *testing.T) {
	// U+10000 is the first code point needing a surrogate pair.
	events := CodePointEvents(0x10000)
	require.Len(t, events, 4)
	assert.Equal(t, uint16(0xD800), events[0].Scan)
	assert.Equal(t, uint16(0xDC00), events[2].Scan)

	// U+FFFF is the last BMP code point.
	assert.Len(t, CodePointEvents(0xFFFF), 2)

	// U+10FFFF is the top of the Unicode range.
	events = CodePointEvents(0x10FFFF)
	require.Len(t, events, 4)
	assert.Equal(t, uint16(0xDBFF), events[0].Scan)
	assert.Equal(t, uint16(0xDFFF), events[2].Scan)
}

func TestInjectDefaultScenario(t *testing.T) {
	// Engine result {Send, backspace: 2, chars: [U+1EA1]} on a default app:
	// 4 backspace events then 2 Unicode events.
	sender := &recordingSender{}
	inj := newTestInjector(sender)

	inj.Inject(2, []rune{0x1EA1}, appdetect.DefaultPolicy())

	events := sender.all()
	require.Len(t, events, 6)

	for i := 0; i < 4; i++ {
		assert.Equal(t, uint16(keymap.VKBack), events[i].VK, "event %d", i)
		assert.False(t, events[i].Unicode(), "event %d", i)
	}
	assert.False(t, events[0].Up())
	assert.True(t, events[1].Up())
	assert.False(t, events[2].Up())
	assert.True(t, events[3].Up())

	assert.Equal(t, uint16(0x1EA1), events[4].Scan)
	assert.True(t, events[4].Unicode())
	assert.True(t, events[5].Up())
}

func TestInjectSelectionMethod(t *testing.T) {
	sender := &recordingSender{}
	inj := newTestInjector(sender)

	pol := appdetect.DefaultPolicy()
	pol.Method = appdetect.MethodSelection

	inj.Inject(3, []rune{'a'}, pol)

	events := sender.all()
	// shift down + 3 Left pairs + shift up + 1 Unicode pair
	require.Len(t, events, 1+6+1+2)

	assert.Equal(t, uint16(keymap.VKShift), events[0].VK)
	assert.False(t, events[0].Up())

	for i := 0; i < 3; i++ {
		down := events[1+i*2]
		up := events[2+i*2]
		assert.Equal(t, uint16(keymap.VKLeft), down.VK)
		assert.False(t, down.Up())
		assert.Equal(t, uint16(keymap.VKLeft), up.VK)
		assert.True(t, up.Up())
	}

	assert.Equal(t, uint16(keymap.VKShift), events[7].VK)
	assert.True(t, events[7].Up())
}

func TestInjectInsertOnly(t *testing.T) {
	sender := &recordingSender{}
	inj := newTestInjector(sender)

	inj.Inject(0, []rune("đi"), appdetect.DefaultPolicy())

	events := sender.all()
	require.Len(t, events, 4)
	assert.Equal(t, uint16(0x0111), events[0].Scan) // đ
	assert.Equal(t, uint16('i'), events[2].Scan)
}

func TestInjectDeleteOnly(t *testing.T) {
	sender := &recordingSender{}
	inj := newTestInjector(sender)

	inj.Inject(2, nil, appdetect.DefaultPolicy())

	require.Len(t, sender.all(), 4)
}

func TestInjectNothing(t *testing.T) {
	sender := &recordingSender{}
	inj := newTestInjector(sender)

	inj.Inject(0, nil, appdetect.DefaultPolicy())

	assert.Empty(t, sender.batches)
}

func TestInjectPacingSleeps(t *testing.T) {
	sender := &recordingSender{}
	inj := New(sender, logging.Default())

	var slept []time.Duration
	inj.sleep = func(d time.Duration) { slept = append(slept, d) }

	pol := appdetect.ClassifyProcess("cmd.exe") // slow 8000/25000/8000
	inj.Inject(2, []rune("ab"), pol)

	// One gap between the two backspace pairs, the settle wait, one gap
	// between the two characters.
	require.Len(t, slept, 3)
	assert.Equal(t, 8000*time.Microsecond, slept[0])
	assert.Equal(t, 25000*time.Microsecond, slept[1])
	assert.Equal(t, 8000*time.Microsecond, slept[2])
}

func TestInjectZeroDelaySingleBatch(t *testing.T) {
	sender := &recordingSender{}
	inj := newTestInjector(sender)

	pol := appdetect.Policy{Method: appdetect.MethodFast}
	inj.Inject(1, []rune("xy"), pol)

	// Unpaced policies send one deletion batch and one insertion batch.
	require.Len(t, sender.batches, 2)
	assert.Len(t, sender.batches[0], 2)
	assert.Len(t, sender.batches[1], 4)
}

func TestInjectPartialAcceptanceDoesNotRetry(t *testing.T) {
	sender := &recordingSender{accept: 1}
	inj := newTestInjector(sender)

	pol := appdetect.Policy{Method: appdetect.MethodFast}
	inj.Inject(2, nil, pol)

	// One batch, regardless of partial acceptance.
	assert.Len(t, sender.batches, 1)
}
