//go:build !windows

package hook

import (
	"vikeyd/internal/logging"
	"vikeyd/internal/pipeline"
)

// Listener is inert on platforms without a system keyboard hook.
type Listener struct{}

// New returns an inert listener.
func New(p *pipeline.Pipeline, log *logging.Logger) *Listener {
	return &Listener{}
}

// Start reports that no hook is available.
func (l *Listener) Start() error { return ErrNotSupported }

// Stop is a no-op.
func (l *Listener) Stop() {}
