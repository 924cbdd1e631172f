// Package engine wraps the external transformation engine (vikey_core) behind
// a Go interface. The engine receives translated keycodes and answers with
// edit instructions: how many characters to delete and which code points to
// insert. Everything about Vietnamese composition lives on the other side of
// this boundary.
package engine

import "errors"

// Action is the edit action requested by the engine for one keystroke.
type Action uint8

const (
	// ActionNone passes the original keystroke through untouched.
	ActionNone Action = 0
	// ActionSend replaces preceding characters with new text.
	ActionSend Action = 1
	// ActionRestore rewrites the current word back to its raw keystrokes.
	ActionRestore Action = 2
)

// String returns the action name for logs.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSend:
		return "send"
	case ActionRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// Method selects the input convention the engine applies.
type Method uint8

const (
	MethodTelex Method = 0
	MethodVNI   Method = 1
)

// Result is the decoded engine answer for one keystroke. The native result
// is freed before ProcessKey returns; Result holds no engine-owned memory.
type Result struct {
	Action    Action
	Backspace uint8
	Chars     []rune
}

// Edit reports whether the result asks for synthetic input.
func (r Result) Edit() bool {
	return (r.Action == ActionSend || r.Action == ActionRestore) &&
		(r.Backspace > 0 || len(r.Chars) > 0)
}

// Options mirrors the engine's configuration setters.
type Options struct {
	Method             Method
	Enabled            bool
	ModernTone         bool
	SkipWShortcut      bool
	BracketShortcut    bool
	EscRestore         bool
	EnglishAutoRestore bool
	AutoCapitalize     bool
}

// Engine is the transformation engine contract consumed by the dispatch
// worker and the IPC handler. Implementations must be safe for the worker
// goroutine plus occasional configuration calls from the IPC goroutine.
type Engine interface {
	// Init initializes the engine. An error means the library could not be
	// loaded; the daemon continues with keystrokes passing through.
	Init() error

	// ProcessKey feeds one translated keycode with modifier state and
	// returns the decoded result. A nil native handle or a missing symbol
	// yields ActionNone, never an error.
	ProcessKey(code uint16, caps, ctrl, shift bool) Result

	// Clear resets the current composition buffer.
	Clear()
	// ClearAll resets all engine state including the restore-word memory.
	ClearAll()

	// Configure pushes the full option set into the engine.
	Configure(opts Options)
	// SetEnabled toggles transformation without reloading anything.
	SetEnabled(enabled bool)
	// SetMethod switches between Telex and VNI.
	SetMethod(m Method)

	// AddShortcut registers a text-expansion shortcut.
	AddShortcut(trigger, replacement string)
	// RemoveShortcut removes a shortcut by trigger.
	RemoveShortcut(trigger string)
	// ClearShortcuts removes all shortcuts.
	ClearShortcuts()

	// RestoreWord seeds the engine's restore-on-backspace memory with the
	// last completed word. Best effort.
	RestoreWord(word string)

	Close() error
}

// ErrNotAvailable is returned by Init on platforms without the native
// engine, or when the library cannot be loaded.
var ErrNotAvailable = errors.New("transformation engine not available")
