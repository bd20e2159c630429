//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package logfile

import "os"

// lockFile is a no-op where flock is unavailable; callers must not open the
// same file twice.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
