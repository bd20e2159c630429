//go:build windows

package queue

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// checkDiskSpace fails when the volume holding dir has less than
// minFreeSpace bytes available to the caller.
func checkDiskSpace(dir string, minFreeSpace int64) error {
	if minFreeSpace == 0 {
		return nil
	}

	dirUTF16, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return fmt.Errorf("failed to convert path: %w", err)
	}

	var available, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(dirUTF16, &available, &total, &totalFree); err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	if int64(available) < minFreeSpace { //nolint:gosec // G115: free space fits in int64
		return fmt.Errorf("insufficient disk space: %d bytes available, %d bytes required",
			available, minFreeSpace)
	}

	return nil
}
