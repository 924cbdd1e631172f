package ipc

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vikeyd/internal/logging"
	"vikeyd/internal/metrics"
	"vikeyd/internal/shortcuts"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := Header{
		Magic:     ProtocolMagic,
		Version:   ProtocolVersion,
		Type:      MsgStatus,
		RequestID: 42,
		Length:    7,
	}
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, HeaderSize, buf.Len())

	got, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, *got)
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Magic: 0xDEADBEEF, Version: ProtocolVersion, Type: MsgPing}
	require.NoError(t, h.Write(&buf))

	_, err := ReadHeader(&buf)
	assert.ErrorContains(t, err, "invalid magic")
}

func TestReadHeaderRejectsFutureVersion(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Magic: ProtocolMagic, Version: ProtocolVersion + 1, Type: MsgPing}
	require.NoError(t, h.Write(&buf))

	_, err := ReadHeader(&buf)
	assert.ErrorContains(t, err, "unsupported protocol version")
}

func TestMessageRoundTrip(t *testing.T) {
	payload, err := Encode(&SetMethodRequest{Method: "vni"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewMessage(MsgSetMethod, 7, payload).Write(&buf))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgSetMethod, got.Header.Type)
	assert.Equal(t, uint32(7), got.Header.RequestID)

	var req SetMethodRequest
	require.NoError(t, Decode(got.Payload, &req))
	assert.Equal(t, "vni", req.Method)
}

func TestReadMessageRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	h := Header{
		Magic:   ProtocolMagic,
		Version: ProtocolVersion,
		Type:    MsgShortcutImport,
		Length:  MaxPayload + 1,
	}
	require.NoError(t, h.Write(&buf))

	_, err := ReadMessage(&buf)
	assert.ErrorContains(t, err, "payload too large")
}

// fakeDaemon records calls and returns canned data.
type fakeDaemon struct {
	enabled    bool
	method     string
	restored   string
	reloaded   bool
	cleared    bool
	shutdown   chan struct{}
	store      []shortcuts.Shortcut
	importErr  error
	importN    int
	lastImport string
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{method: "telex", shutdown: make(chan struct{}, 1)}
}

func (d *fakeDaemon) Status() StatusResponse {
	return StatusResponse{
		Version:      "test",
		Enabled:      d.enabled,
		Method:       d.method,
		EngineLoaded: true,
		Metrics:      metrics.NewPipeline().Snapshot(),
	}
}

func (d *fakeDaemon) SetEnabled(enabled bool) error {
	d.enabled = enabled
	return nil
}

func (d *fakeDaemon) SetMethod(method string) error {
	if method != "telex" && method != "vni" {
		return fmt.Errorf("unknown method %q", method)
	}
	d.method = method
	return nil
}

func (d *fakeDaemon) RestoreWord(word string) error {
	d.restored = word
	return nil
}

func (d *fakeDaemon) ReloadConfig() error {
	d.reloaded = true
	return nil
}

func (d *fakeDaemon) ShortcutAdd(trigger, replacement string) error {
	d.store = append(d.store, shortcuts.Shortcut{Trigger: trigger, Replacement: replacement})
	return nil
}

func (d *fakeDaemon) ShortcutRemove(trigger string) error { return nil }

func (d *fakeDaemon) ShortcutList() ([]shortcuts.Shortcut, error) { return d.store, nil }

func (d *fakeDaemon) ShortcutClear() error {
	d.cleared = true
	d.store = nil
	return nil
}

func (d *fakeDaemon) ShortcutImport(format string, data []byte) (int, error) {
	d.lastImport = format
	return d.importN, d.importErr
}

func (d *fakeDaemon) ShortcutExport() ([]byte, error) {
	return shortcuts.ExportYAML(d.store)
}

func (d *fakeDaemon) Shutdown() {
	select {
	case d.shutdown <- struct{}{}:
	default:
	}
}

func TestDispatchUnknownType(t *testing.T) {
	s := NewServer("", time.Second, newFakeDaemon(), logging.Default())

	resp := s.dispatch(NewMessage(MessageType(0xEEEE), 9, nil))

	assert.Equal(t, MsgError, resp.Header.Type)
	assert.Equal(t, uint32(9), resp.Header.RequestID)

	var e ErrorResponse
	require.NoError(t, Decode(resp.Payload, &e))
	assert.Equal(t, ErrNotFound, e.Code)
}

func TestDispatchInvalidPayload(t *testing.T) {
	s := NewServer("", time.Second, newFakeDaemon(), logging.Default())

	resp := s.dispatch(NewMessage(MsgSetMethod, 1, []byte("{{{")))
	assert.Equal(t, MsgError, resp.Header.Type)
}

func TestClientServerRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix socket test")
	}

	daemon := newFakeDaemon()
	sock := filepath.Join(t.TempDir(), "vikeyd.sock")
	srv := NewServer(sock, time.Second, daemon, logging.Default())
	require.NoError(t, srv.Start())
	defer srv.Stop()

	c, err := Dial(sock, time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping())

	require.NoError(t, c.RequestAck(MsgSetEnabled, &SetEnabledRequest{Enabled: true}))
	require.NoError(t, c.RequestAck(MsgSetMethod, &SetMethodRequest{Method: "vni"}))

	var status StatusResponse
	require.NoError(t, c.Request(MsgStatus, nil, &status))
	assert.True(t, status.Enabled)
	assert.Equal(t, "vni", status.Method)

	err = c.RequestAck(MsgSetMethod, &SetMethodRequest{Method: "wubi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")

	require.NoError(t, c.RequestAck(MsgShortcutAdd, &ShortcutAddRequest{
		Trigger: "vn", Replacement: "Việt Nam",
	}))
	var list ShortcutListResponse
	require.NoError(t, c.Request(MsgShortcutList, nil, &list))
	require.Len(t, list.Shortcuts, 1)
	assert.Equal(t, "vn", list.Shortcuts[0].Trigger)

	var export ShortcutExportResponse
	require.NoError(t, c.Request(MsgShortcutExport, nil, &export))
	imported, err := shortcuts.ImportYAML(export.Data)
	require.NoError(t, err)
	assert.Equal(t, daemon.store, imported)
}

func TestShutdownMessage(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix socket test")
	}

	daemon := newFakeDaemon()
	sock := filepath.Join(t.TempDir(), "vikeyd.sock")
	srv := NewServer(sock, time.Second, daemon, logging.Default())
	require.NoError(t, srv.Start())
	defer srv.Stop()

	c, err := Dial(sock, time.Second)
	require.NoError(t, err)
	defer c.Close()

	var ack Ack
	require.NoError(t, c.Request(MsgShutdown, nil, &ack))
	assert.True(t, ack.Success)

	select {
	case <-daemon.shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown not invoked")
	}
}
