//go:build !linux

package ordinal

import (
	"os"
	"runtime"
	"time"
)

// DetectPlatform returns the runtime GOOS string.
func DetectPlatform() string { return runtime.GOOS }

// DetectArch returns the runtime GOARCH string.
func DetectArch() string { return runtime.GOARCH }

// DetectNProc returns runtime.NumCPU; platforms without an affinity-mask
// syscall (e.g. Windows) get the simpler "all CPUs visible" count.
func DetectNProc() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

func statMtime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}
