package appdetect

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vikeyd/internal/logging"
)

type fakeReader struct {
	app   ForegroundApp
	err   error
	calls int
}

func (f *fakeReader) Foreground() (ForegroundApp, error) {
	f.calls++
	return f.app, f.err
}

func newTestClassifier(t *testing.T, reader ForegroundReader) (*Classifier, *time.Time) {
	t.Helper()

	c := NewClassifier(reader, DefaultTTL, logging.Default())
	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestClassifyTerminal(t *testing.T) {
	pol := ClassifyProcess("cmd.exe")

	assert.Equal(t, MethodSlow, pol.Method)
	assert.Equal(t, 8000*time.Microsecond, pol.BackspaceDelay)
	assert.Equal(t, 25000*time.Microsecond, pol.WaitDelay)
	assert.Equal(t, 8000*time.Microsecond, pol.CharDelay)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	assert.Equal(t, ClassifyProcess("cmd.exe"), ClassifyProcess("CMD.EXE"))
	assert.Equal(t, MethodSlow, ClassifyProcess("PowerShell.exe").Method)
}

func TestClassifyDefault(t *testing.T) {
	pol := ClassifyProcess("notepad.exe")

	assert.Equal(t, MethodFast, pol.Method)
	assert.Equal(t, 200*time.Microsecond, pol.BackspaceDelay)
	assert.Equal(t, 800*time.Microsecond, pol.WaitDelay)
	assert.Equal(t, 500*time.Microsecond, pol.CharDelay)
}

func TestClassifyFamilies(t *testing.T) {
	assert.Equal(t, MethodSlow, ClassifyProcess("code.exe").Method)
	assert.Equal(t, MethodSlow, ClassifyProcess("slack.exe").Method)
	assert.Equal(t, 3000*time.Microsecond, ClassifyProcess("discord.exe").BackspaceDelay)
	assert.Equal(t, MethodFast, ClassifyProcess("chrome.exe").Method)
	assert.Equal(t, 500*time.Microsecond, ClassifyProcess("chrome.exe").BackspaceDelay)
}

func TestPolicyCachedWithinTTL(t *testing.T) {
	reader := &fakeReader{app: ForegroundApp{Name: "notepad.exe", PID: 1234}}
	c, now := newTestClassifier(t, reader)

	first := c.Policy()
	*now = now.Add(50 * time.Millisecond)
	second := c.Policy()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reader.calls, "second lookup within TTL must not re-resolve")
}

func TestPolicyExpiresAfterTTL(t *testing.T) {
	reader := &fakeReader{app: ForegroundApp{Name: "notepad.exe", PID: 1234}}
	c, now := newTestClassifier(t, reader)

	c.Policy()
	*now = now.Add(DefaultTTL + time.Millisecond)
	c.Policy()

	assert.Equal(t, 2, reader.calls, "lookup after TTL must re-resolve")
}

func TestPolicyInvalidate(t *testing.T) {
	reader := &fakeReader{app: ForegroundApp{Name: "cmd.exe", PID: 99}}
	c, _ := newTestClassifier(t, reader)

	c.Policy()
	c.Invalidate()
	c.Policy()

	assert.Equal(t, 2, reader.calls, "lookup after Invalidate must re-resolve")
}

func TestPolicyFallbackOnReaderError(t *testing.T) {
	reader := &fakeReader{err: errors.New("no window")}
	c, _ := newTestClassifier(t, reader)

	pol := c.Policy()

	assert.Equal(t, DefaultPolicy(), pol)

	// Errors are not cached.
	c.Policy()
	assert.Equal(t, 2, reader.calls)
}

func TestPolicyOverrideWins(t *testing.T) {
	reader := &fakeReader{app: ForegroundApp{Name: "Chrome.exe", PID: 7}}
	c, _ := newTestClassifier(t, reader)

	want := Policy{
		Method:         MethodSelection,
		BackspaceDelay: time.Millisecond,
		WaitDelay:      2 * time.Millisecond,
		CharDelay:      time.Millisecond,
	}
	c.SetOverrides([]Override{{Process: "chrome.exe", Policy: want}})

	assert.Equal(t, want, c.Policy())
}

func TestSetOverridesInvalidatesCache(t *testing.T) {
	reader := &fakeReader{app: ForegroundApp{Name: "notepad.exe", PID: 5}}
	c, _ := newTestClassifier(t, reader)

	require.Equal(t, MethodFast, c.Policy().Method)

	slow := ClassifyProcess("cmd.exe")
	c.SetOverrides([]Override{{Process: "notepad.exe", Policy: slow}})

	assert.Equal(t, MethodSlow, c.Policy().Method)
}

func TestCached(t *testing.T) {
	reader := &fakeReader{app: ForegroundApp{Name: "cmd.exe", PID: 42}}
	c, now := newTestClassifier(t, reader)

	_, ok := c.Cached()
	assert.False(t, ok)

	c.Policy()
	app, ok := c.Cached()
	require.True(t, ok)
	assert.Equal(t, "cmd.exe", app.Name)
	assert.Equal(t, uint32(42), app.PID)

	*now = now.Add(DefaultTTL + time.Millisecond)
	_, ok = c.Cached()
	assert.False(t, ok)
}

func TestParseMethod(t *testing.T) {
	for s, want := range map[string]Method{
		"fast":      MethodFast,
		"Slow":      MethodSlow,
		"SELECTION": MethodSelection,
	} {
		got, ok := ParseMethod(s)
		require.True(t, ok, s)
		assert.Equal(t, want, got)
	}

	_, ok := ParseMethod("warp")
	assert.False(t, ok)
}
