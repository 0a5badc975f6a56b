//go:build linux

package ordinal

import (
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// DetectPlatform returns the runtime GOOS string ("linux", "darwin", ...),
// matching ORDINAL's ${_platform} runtime variable.
func DetectPlatform() string { return runtime.GOOS }

// DetectArch returns the runtime GOARCH string.
func DetectArch() string { return runtime.GOARCH }

// DetectNProc returns the number of usable logical CPUs, used both as the
// ${_nproc} runtime variable and as DefaultConfig's auto-detected Jobs.
// Linux can restrict visible CPUs below the physical count via the
// scheduler affinity mask (cgroups, taskset); consult it before falling
// back to runtime.NumCPU.
func DetectNProc() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// statMtime returns path's modification time via a direct stat(2), avoiding
// an extra os.FileInfo allocation for the hot up-to-date check.
func statMtime(path string) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, err
	}
	return time.Unix(st.Mtim.Sec, st.Mtim.Nsec), nil
}
