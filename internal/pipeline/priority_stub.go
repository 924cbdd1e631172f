//go:build !windows

package pipeline

import "runtime"

func lockWorkerThread() {
	runtime.LockOSThread()
}

func unlockWorkerThread() {
	runtime.UnlockOSThread()
}
