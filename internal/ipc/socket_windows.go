//go:build windows

package ipc

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	pipeAccessDuplex       = 0x00000003
	pipeTypeByte           = 0x00000000
	pipeWait               = 0x00000000
	pipeUnlimitedInstances = 255

	pipeBufferSize = 64 * 1024

	errorPipeConnected = 535
	errorPipeBusy      = 231
)

var (
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procCreateNamedPipeW    = kernel32.NewProc("CreateNamedPipeW")
	procConnectNamedPipe    = kernel32.NewProc("ConnectNamedPipe")
	procDisconnectNamedPipe = kernel32.NewProc("DisconnectNamedPipe")
	procWaitNamedPipeW      = kernel32.NewProc("WaitNamedPipeW")
)

// listen creates a named-pipe listener. The path is the full pipe name,
// e.g. \\.\pipe\vikeyd. The default security descriptor limits access to
// the creating user.
func listen(path string) (net.Listener, error) {
	return &pipeListener{name: path}, nil
}

func cleanupSocket(path string) {
	// Named pipe instances vanish with their handles.
}

// pipeListener creates one pipe instance per Accept, the standard
// multi-instance named pipe server pattern.
type pipeListener struct {
	name   string
	closed atomic.Bool
}

func (l *pipeListener) Accept() (net.Conn, error) {
	if l.closed.Load() {
		return nil, net.ErrClosed
	}

	namePtr, err := windows.UTF16PtrFromString(l.name)
	if err != nil {
		return nil, err
	}

	handle, _, callErr := procCreateNamedPipeW.Call(
		uintptr(unsafe.Pointer(namePtr)),
		pipeAccessDuplex,
		pipeTypeByte|pipeWait,
		pipeUnlimitedInstances,
		pipeBufferSize,
		pipeBufferSize,
		0,
		0,
	)
	if windows.Handle(handle) == windows.InvalidHandle {
		return nil, fmt.Errorf("create pipe: %w", callErr)
	}

	ret, _, callErr := procConnectNamedPipe.Call(handle, 0)
	if ret == 0 {
		if errno, ok := callErr.(windows.Errno); !ok || errno != errorPipeConnected {
			windows.CloseHandle(windows.Handle(handle))
			if l.closed.Load() {
				return nil, net.ErrClosed
			}
			return nil, fmt.Errorf("connect pipe: %w", callErr)
		}
	}
	if l.closed.Load() {
		windows.CloseHandle(windows.Handle(handle))
		return nil, net.ErrClosed
	}

	return &pipeConn{handle: windows.Handle(handle), name: l.name, server: true}, nil
}

func (l *pipeListener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	// Nudge the blocked ConnectNamedPipe by connecting once.
	if conn, err := dial(l.name, 100*time.Millisecond); err == nil {
		conn.Close()
	}
	return nil
}

func (l *pipeListener) Addr() net.Addr { return pipeAddr(l.name) }

// dial connects to the daemon's named pipe, waiting briefly when all
// instances are busy.
func dial(path string, timeout time.Duration) (net.Conn, error) {
	namePtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for {
		handle, err := windows.CreateFile(
			namePtr,
			windows.GENERIC_READ|windows.GENERIC_WRITE,
			0,
			nil,
			windows.OPEN_EXISTING,
			0,
			0,
		)
		if err == nil {
			return &pipeConn{handle: handle, name: path}, nil
		}
		if err != windows.Errno(errorPipeBusy) || time.Now().After(deadline) {
			return nil, fmt.Errorf("open pipe %s: %w", path, err)
		}
		procWaitNamedPipeW.Call(uintptr(unsafe.Pointer(namePtr)), 50)
	}
}

// pipeConn implements net.Conn over a named pipe handle. Deadlines are not
// supported; the protocol's one-request-per-read framing and the short
// daemon timeouts bound blocking in practice.
type pipeConn struct {
	handle windows.Handle
	name   string
	server bool
}

func (c *pipeConn) Read(b []byte) (int, error) {
	var n uint32
	err := windows.ReadFile(c.handle, b, &n, nil)
	return int(n), err
}

func (c *pipeConn) Write(b []byte) (int, error) {
	var n uint32
	err := windows.WriteFile(c.handle, b, &n, nil)
	return int(n), err
}

func (c *pipeConn) Close() error {
	if c.server {
		procDisconnectNamedPipe.Call(uintptr(c.handle))
	}
	return windows.CloseHandle(c.handle)
}

func (c *pipeConn) LocalAddr() net.Addr                { return pipeAddr(c.name) }
func (c *pipeConn) RemoteAddr() net.Addr               { return pipeAddr(c.name) }
func (c *pipeConn) SetDeadline(t time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(t time.Time) error { return nil }

type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }
