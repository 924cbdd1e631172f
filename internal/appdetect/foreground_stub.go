//go:build !windows

package appdetect

import (
	"errors"

	"vikeyd/internal/logging"
)

// ErrNotSupported is returned on platforms without foreground detection.
var ErrNotSupported = errors.New("foreground detection not supported on this platform")

type stubReader struct{}

// NewForegroundReader returns the platform foreground reader.
func NewForegroundReader() ForegroundReader {
	return stubReader{}
}

func (stubReader) Foreground() (ForegroundApp, error) {
	return ForegroundApp{}, ErrNotSupported
}

// FocusWatcher is inert on platforms without focus notifications; the
// classifier then relies purely on its TTL.
type FocusWatcher struct{}

// NewFocusWatcher creates a watcher bound to the classifier.
func NewFocusWatcher(classifier *Classifier, log *logging.Logger) *FocusWatcher {
	return &FocusWatcher{}
}

// Start is a no-op.
func (w *FocusWatcher) Start() error { return nil }

// Stop is a no-op.
func (w *FocusWatcher) Stop() {}
