//go:build !windows

package inject

import "errors"

// ErrNotSupported is returned on platforms without synthetic input.
var ErrNotSupported = errors.New("synthetic input not supported on this platform")

type stubSender struct{}

// NewSender returns the platform sender.
func NewSender() Sender {
	return stubSender{}
}

func (stubSender) Send(events []KeyInput) (int, error) {
	return 0, ErrNotSupported
}
