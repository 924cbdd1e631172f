//go:build windows

package appdetect

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"vikeyd/internal/logging"
)

const (
	eventSystemForeground = 0x0003
	eventObjectFocus      = 0x8005

	wineventOutOfContext   = 0x0000
	wineventSkipOwnProcess = 0x0002

	wmQuit = 0x0012
)

var (
	procSetWinEventHook   = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent    = user32.NewProc("UnhookWinEvent")
	procGetMessageW       = user32.NewProc("GetMessageW")
	procPostThreadMessage = user32.NewProc("PostThreadMessageW")
)

// FocusWatcher subscribes to foreground-window and input-focus change
// notifications and invalidates the classifier cache on each one. The
// WinEvent callbacks arrive on the thread that runs the message loop, so the
// watcher owns a locked OS thread for its lifetime.
type FocusWatcher struct {
	classifier *Classifier
	log        *logging.Logger

	threadID uint32
	started  chan error
	done     chan struct{}
}

// NewFocusWatcher creates a watcher bound to the classifier.
func NewFocusWatcher(classifier *Classifier, log *logging.Logger) *FocusWatcher {
	return &FocusWatcher{
		classifier: classifier,
		log:        log.WithComponent("focuswatch"),
		started:    make(chan error, 1),
		done:       make(chan struct{}),
	}
}

// Start installs the WinEvent hooks and runs the message loop until Stop.
func (w *FocusWatcher) Start() error {
	go w.run()
	return <-w.started
}

func (w *FocusWatcher) run() {
	// WinEvent hooks deliver to the installing thread's message loop.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	w.threadID = windows.GetCurrentThreadId()

	callback := syscall.NewCallback(func(hook, event, hwnd, objectID, childID, eventThread, eventTime uintptr) uintptr {
		// Any change of foreground window or focused control can move the
		// caret into a different process or field; a cached policy is no
		// longer trustworthy.
		w.classifier.Invalidate()
		return 0
	})

	install := func(event uintptr) (uintptr, error) {
		hook, _, err := procSetWinEventHook.Call(
			event, event,
			0,
			callback,
			0, 0,
			wineventOutOfContext|wineventSkipOwnProcess,
		)
		if hook == 0 {
			return 0, fmt.Errorf("SetWinEventHook(%#x): %w", event, err)
		}
		return hook, nil
	}

	fgHook, err := install(eventSystemForeground)
	if err != nil {
		w.started <- err
		return
	}
	focusHook, err := install(eventObjectFocus)
	if err != nil {
		procUnhookWinEvent.Call(fgHook)
		w.started <- err
		return
	}

	w.log.Debug("focus watcher installed")
	w.started <- nil

	var msg struct {
		hwnd    uintptr
		message uint32
		wparam  uintptr
		lparam  uintptr
		time    uint32
		pt      struct{ x, y int32 }
	}
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if ret == 0 || int32(ret) == -1 { // WM_QUIT or error
			break
		}
	}

	procUnhookWinEvent.Call(fgHook)
	procUnhookWinEvent.Call(focusHook)
	w.log.Debug("focus watcher stopped")
}

// Stop posts WM_QUIT to the watcher thread and waits for teardown.
func (w *FocusWatcher) Stop() {
	if w.threadID != 0 {
		procPostThreadMessage.Call(uintptr(w.threadID), wmQuit, 0, 0)
	}
	<-w.done
}
