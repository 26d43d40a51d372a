//go:build !windows && !linux && !darwin

package tactile

import "syscall"

// getMaxRSSBytes converts ru_maxrss; the BSDs report kilobytes like Linux.
func getMaxRSSBytes(rusage *syscall.Rusage) int64 {
	return int64(rusage.Maxrss) * 1024
}
