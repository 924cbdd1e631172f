//go:build windows

package pipeline

import (
	"runtime"

	"golang.org/x/sys/windows"
)

const threadPriorityTimeCritical = 15

var (
	kernel32              = windows.NewLazySystemDLL("kernel32.dll")
	procGetCurrentThread  = kernel32.NewProc("GetCurrentThread")
	procSetThreadPriority = kernel32.NewProc("SetThreadPriority")
)

// lockWorkerThread pins the dispatch goroutine to an OS thread and raises
// its scheduling priority so injection timing stays close to the configured
// microsecond gaps even under load.
func lockWorkerThread() {
	runtime.LockOSThread()
	handle, _, _ := procGetCurrentThread.Call()
	procSetThreadPriority.Call(handle, threadPriorityTimeCritical)
}

func unlockWorkerThread() {
	runtime.UnlockOSThread()
}
