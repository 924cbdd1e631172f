//go:build windows

package appdetect

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

// WindowsForegroundReader resolves the foreground process image name through
// GetForegroundWindow and QueryFullProcessImageName.
type WindowsForegroundReader struct{}

// NewForegroundReader returns the platform foreground reader.
func NewForegroundReader() ForegroundReader {
	return &WindowsForegroundReader{}
}

var errNoForegroundWindow = errors.New("no foreground window")

// Foreground reads the current foreground application.
func (r *WindowsForegroundReader) Foreground() (ForegroundApp, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return ForegroundApp{}, errNoForegroundWindow
	}

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return ForegroundApp{}, errors.New("foreground window has no process")
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ForegroundApp{}, fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	var buf [windows.MAX_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return ForegroundApp{}, fmt.Errorf("query image name for %d: %w", pid, err)
	}

	full := windows.UTF16ToString(buf[:size])
	name := full
	if i := strings.LastIndexByte(full, '\\'); i >= 0 {
		name = full[i+1:]
	}

	return ForegroundApp{Name: name, PID: pid}, nil
}
