//go:build linux || darwin || freebsd

package queue

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// checkDiskSpace fails when the filesystem holding dir has less than
// minFreeSpace bytes available to unprivileged users.
func checkDiskSpace(dir string, minFreeSpace int64) error {
	if minFreeSpace == 0 {
		return nil
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	available := int64(uint64(stat.Bavail) * uint64(stat.Bsize)) //nolint:gosec,unconvert // G115: platform-dependent field widths
	if available < minFreeSpace {
		return fmt.Errorf("insufficient disk space: %d bytes available, %d bytes required",
			available, minFreeSpace)
	}

	return nil
}
