//go:build windows

package engine

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"vikeyd/internal/logging"
)

// Library is the Windows engine client backed by vikey_core.dll. Every
// exported symbol is resolved lazily; a missing symbol downgrades the call
// to a no-op with a one-time log line instead of crashing the daemon.
type Library struct {
	log *logging.Logger

	dll *windows.LazyDLL

	procInit               *windows.LazyProc
	procKeyExt             *windows.LazyProc
	procFree               *windows.LazyProc
	procClear              *windows.LazyProc
	procClearAll           *windows.LazyProc
	procMethod             *windows.LazyProc
	procEnabled            *windows.LazyProc
	procModern             *windows.LazyProc
	procSkipWShortcut      *windows.LazyProc
	procBracketShortcut    *windows.LazyProc
	procEscRestore         *windows.LazyProc
	procEnglishAutoRestore *windows.LazyProc
	procAutoCapitalize     *windows.LazyProc
	procAddShortcut        *windows.LazyProc
	procRemoveShortcut     *windows.LazyProc
	procClearShortcuts     *windows.LazyProc
	procRestoreWord        *windows.LazyProc

	warnedMu sync.Mutex
	warned   map[string]bool
}

// DefaultLibraryName is the engine DLL looked up on PATH and next to the
// executable when no explicit path is configured.
const DefaultLibraryName = "vikey_core.dll"

// NewLibrary creates a client for the engine DLL at path. The DLL is not
// loaded until Init.
func NewLibrary(path string, log *logging.Logger) *Library {
	if path == "" {
		path = DefaultLibraryName
	}
	l := &Library{
		log:    log.WithComponent("engine"),
		dll:    windows.NewLazyDLL(path),
		warned: make(map[string]bool),
	}

	l.procInit = l.dll.NewProc("ime_init")
	l.procKeyExt = l.dll.NewProc("ime_key_ext")
	l.procFree = l.dll.NewProc("ime_free")
	l.procClear = l.dll.NewProc("ime_clear")
	l.procClearAll = l.dll.NewProc("ime_clear_all")
	l.procMethod = l.dll.NewProc("ime_method")
	l.procEnabled = l.dll.NewProc("ime_enabled")
	l.procModern = l.dll.NewProc("ime_modern")
	l.procSkipWShortcut = l.dll.NewProc("ime_skip_w_shortcut")
	l.procBracketShortcut = l.dll.NewProc("ime_bracket_shortcut")
	l.procEscRestore = l.dll.NewProc("ime_esc_restore")
	l.procEnglishAutoRestore = l.dll.NewProc("ime_english_auto_restore")
	l.procAutoCapitalize = l.dll.NewProc("ime_auto_capitalize")
	l.procAddShortcut = l.dll.NewProc("ime_add_shortcut")
	l.procRemoveShortcut = l.dll.NewProc("ime_remove_shortcut")
	l.procClearShortcuts = l.dll.NewProc("ime_clear_shortcuts")
	l.procRestoreWord = l.dll.NewProc("ime_restore_word")

	return l
}

// Init loads the DLL and calls ime_init.
func (l *Library) Init() error {
	if err := l.dll.Load(); err != nil {
		return fmt.Errorf("%w: load %s: %v", ErrNotAvailable, l.dll.Name, err)
	}
	if !l.call0(l.procInit) {
		return fmt.Errorf("%w: ime_init missing", ErrNotAvailable)
	}
	l.log.Info("engine initialized", "library", l.dll.Name)
	return nil
}

// resolve returns true when the proc is callable, logging the missing
// symbol once otherwise.
func (l *Library) resolve(p *windows.LazyProc) bool {
	if p == nil {
		return false
	}
	if err := p.Find(); err != nil {
		l.warnedMu.Lock()
		if !l.warned[p.Name] {
			l.warned[p.Name] = true
			l.log.Warn("engine symbol missing, call skipped", "symbol", p.Name)
		}
		l.warnedMu.Unlock()
		return false
	}
	return true
}

func (l *Library) call0(p *windows.LazyProc) bool {
	if !l.resolve(p) {
		return false
	}
	p.Call()
	return true
}

func boolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

func cstring(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

// ProcessKey calls ime_key_ext and decodes the native result. The native
// struct is freed here, exactly once, before returning.
func (l *Library) ProcessKey(code uint16, caps, ctrl, shift bool) Result {
	if !l.resolve(l.procKeyExt) {
		return Result{}
	}

	ret, _, _ := l.procKeyExt.Call(
		uintptr(code),
		boolArg(caps),
		boolArg(ctrl),
		boolArg(shift),
	)
	if ret == 0 {
		// Null handle: nothing to do for this keystroke.
		return Result{}
	}

	native := (*nativeResult)(unsafe.Pointer(ret))
	result := decodeResult(native)

	if l.resolve(l.procFree) {
		l.procFree.Call(ret)
	}
	return result
}

// Clear resets the composition buffer.
func (l *Library) Clear() { l.call0(l.procClear) }

// ClearAll resets all engine state.
func (l *Library) ClearAll() { l.call0(l.procClearAll) }

// SetMethod switches the input convention.
func (l *Library) SetMethod(m Method) {
	if l.resolve(l.procMethod) {
		l.procMethod.Call(uintptr(m))
	}
}

// SetEnabled toggles transformation.
func (l *Library) SetEnabled(enabled bool) {
	if l.resolve(l.procEnabled) {
		l.procEnabled.Call(boolArg(enabled))
	}
}

// Configure pushes the full option set into the engine.
func (l *Library) Configure(opts Options) {
	l.SetMethod(opts.Method)
	l.SetEnabled(opts.Enabled)
	l.setBool(l.procModern, opts.ModernTone)
	l.setBool(l.procSkipWShortcut, opts.SkipWShortcut)
	l.setBool(l.procBracketShortcut, opts.BracketShortcut)
	l.setBool(l.procEscRestore, opts.EscRestore)
	l.setBool(l.procEnglishAutoRestore, opts.EnglishAutoRestore)
	l.setBool(l.procAutoCapitalize, opts.AutoCapitalize)
}

func (l *Library) setBool(p *windows.LazyProc, v bool) {
	if l.resolve(p) {
		p.Call(boolArg(v))
	}
}

// AddShortcut registers a text-expansion shortcut.
func (l *Library) AddShortcut(trigger, replacement string) {
	if trigger == "" || replacement == "" {
		return
	}
	if l.resolve(l.procAddShortcut) {
		l.procAddShortcut.Call(
			uintptr(unsafe.Pointer(cstring(trigger))),
			uintptr(unsafe.Pointer(cstring(replacement))),
		)
	}
}

// RemoveShortcut removes a shortcut by trigger.
func (l *Library) RemoveShortcut(trigger string) {
	if trigger == "" {
		return
	}
	if l.resolve(l.procRemoveShortcut) {
		l.procRemoveShortcut.Call(uintptr(unsafe.Pointer(cstring(trigger))))
	}
}

// ClearShortcuts removes all shortcuts.
func (l *Library) ClearShortcuts() { l.call0(l.procClearShortcuts) }

// RestoreWord seeds the restore-on-backspace memory.
func (l *Library) RestoreWord(word string) {
	if word == "" {
		return
	}
	if l.resolve(l.procRestoreWord) {
		l.procRestoreWord.Call(uintptr(unsafe.Pointer(cstring(word))))
	}
}

// Close releases nothing: LazyDLL keeps the module loaded for process
// lifetime, matching the engine's expectation of one init per process.
func (l *Library) Close() error { return nil }

// New returns the platform engine client.
func New(path string, log *logging.Logger) Engine {
	return NewLibrary(path, log)
}
