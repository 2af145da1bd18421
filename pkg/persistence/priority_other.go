//go:build !linux

package persistence

func lowerThreadPriority() error {
	return nil
}
