//go:build windows

package hook

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"vikeyd/internal/keymap"
	"vikeyd/internal/logging"
	"vikeyd/internal/pipeline"
)

const (
	whKeyboardLL = 13
	hcAction     = 0

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012

	llkhfInjected = 0x10

	keyToggled = 0x0001
	keyPressed = 0x8000
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW  = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHook  = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx     = user32.NewProc("CallNextHookEx")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procGetKeyState        = user32.NewProc("GetKeyState")
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdllHookStruct struct {
	vkCode    uint32
	scanCode  uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// active is the listener the shared hook procedure delivers to. The callback
// trampoline is allocated once per process (NewCallback allocations are never
// released), so the procedure itself is a package singleton.
var active atomic.Pointer[Listener]

var hookProcOnce = sync.OnceValue(func() uintptr {
	return syscall.NewCallback(hookProc)
})

func hookProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if l := active.Load(); l != nil {
			l.handle(wParam, (*kbdllHookStruct)(unsafe.Pointer(lParam)))
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

// Listener owns the WH_KEYBOARD_LL hook and its message-loop thread.
type Listener struct {
	p   *pipeline.Pipeline
	log *logging.Logger

	threadID uint32
	started  chan error
	done     chan struct{}
}

// New creates a Listener feeding the pipeline. Only one listener may run at
// a time.
func New(p *pipeline.Pipeline, log *logging.Logger) *Listener {
	return &Listener{
		p:       p,
		log:     log.WithComponent("hook"),
		started: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// Start installs the hook and runs the message loop on a dedicated thread.
// A failure here is fatal to the daemon: without the hook there is nothing
// to process.
func (l *Listener) Start() error {
	if !active.CompareAndSwap(nil, l) {
		return fmt.Errorf("keyboard hook already installed")
	}
	go l.run()
	if err := <-l.started; err != nil {
		active.Store(nil)
		return err
	}
	return nil
}

func (l *Listener) run() {
	// The hook delivers to the installing thread's message loop, and stays
	// valid only while that thread pumps messages.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	l.threadID = windows.GetCurrentThreadId()

	hook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookProcOnce(), 0, 0)
	if hook == 0 {
		l.started <- fmt.Errorf("SetWindowsHookEx(WH_KEYBOARD_LL): %w", err)
		return
	}

	l.log.Info("keyboard hook installed")
	l.started <- nil

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

	procUnhookWindowsHook.Call(hook)
	l.log.Info("keyboard hook removed")
}

// handle runs inside the hook procedure on the OS hook thread. Windows
// silently removes hooks that exceed their time budget, so this path does no
// allocation, no locking, and no I/O beyond three GetKeyState calls.
func (l *Listener) handle(wParam uintptr, kb *kbdllHookStruct) {
	ev := pipeline.HookEvent{
		VK:        uint16(kb.vkCode),
		KeyDown:   wParam == wmKeyDown || wParam == wmSysKeyDown,
		Injected:  kb.flags&llkhfInjected != 0,
		ExtraInfo: kb.extraInfo,
		SysKey:    wParam == wmSysKeyDown || wParam == wmSysKeyUp,
	}
	state := pipeline.KeyEvent{
		VK:      ev.VK,
		KeyDown: ev.KeyDown,
		Caps:    keyState(keymap.VKCapital)&keyToggled != 0,
		Ctrl:    keyState(keymap.VKControl)&keyPressed != 0,
		Shift:   keyState(keymap.VKShift)&keyPressed != 0,
		Time:    time.Now().UnixNano(),
	}
	l.p.Offer(ev, state)
}

func keyState(vk uint16) uint16 {
	ret, _, _ := procGetKeyState.Call(uintptr(vk))
	return uint16(ret)
}

// Stop posts WM_QUIT to the hook thread, which unhooks before exiting, and
// waits for teardown. Call before stopping the worker so capture ceases
// first.
func (l *Listener) Stop() {
	if active.Load() != l {
		return
	}
	if l.threadID != 0 {
		procPostThreadMessageW.Call(uintptr(l.threadID), wmQuit, 0, 0)
	}
	<-l.done
	active.Store(nil)
}
