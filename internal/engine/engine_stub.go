//go:build !windows

package engine

import "vikeyd/internal/logging"

// Stub is the engine client on platforms without the native library. Every
// keystroke passes through.
type Stub struct{}

// New returns the platform engine client.
func New(path string, log *logging.Logger) Engine {
	return &Stub{}
}

// Init reports that no engine is available on this platform.
func (s *Stub) Init() error { return ErrNotAvailable }

// ProcessKey always passes the keystroke through.
func (s *Stub) ProcessKey(code uint16, caps, ctrl, shift bool) Result {
	return Result{}
}

// Clear is a no-op.
func (s *Stub) Clear() {}

// ClearAll is a no-op.
func (s *Stub) ClearAll() {}

// Configure is a no-op.
func (s *Stub) Configure(opts Options) {}

// SetEnabled is a no-op.
func (s *Stub) SetEnabled(enabled bool) {}

// SetMethod is a no-op.
func (s *Stub) SetMethod(m Method) {}

// AddShortcut is a no-op.
func (s *Stub) AddShortcut(trigger, replacement string) {}

// RemoveShortcut is a no-op.
func (s *Stub) RemoveShortcut(trigger string) {}

// ClearShortcuts is a no-op.
func (s *Stub) ClearShortcuts() {}

// RestoreWord is a no-op.
func (s *Stub) RestoreWord(word string) {}

// Close is a no-op.
func (s *Stub) Close() error { return nil }
