//go:build linux

package persistence

import "golang.org/x/sys/unix"

// backgroundNice is the nice value applied to save threads.
const backgroundNice = 10

// lowerThreadPriority raises the nice value of the calling OS thread. The
// caller must have locked the goroutine to its thread.
func lowerThreadPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), backgroundNice)
}
