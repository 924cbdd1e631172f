// Package hook installs the system-wide low-level keyboard hook and feeds
// captured events into the pipeline. The hook callback runs on a dedicated
// locked OS thread with its own message loop; it classifies each event,
// snapshots modifier state, and enqueues physical keydowns without blocking.
package hook

import "errors"

// ErrNotSupported is returned by Start on platforms without a system
// keyboard hook.
var ErrNotSupported = errors.New("keyboard hook not supported on this platform")
