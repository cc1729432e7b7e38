//go:build linux

package util

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SCHED_EXT is the sched_ext scheduling class.
const SCHED_EXT = 7

// LockMemory pins current and future pages of the process.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}
	return nil
}

// SetSchedExt moves the calling process into the sched_ext class.
func SetSchedExt() error {
	attr := unix.SchedAttr{Policy: SCHED_EXT}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("sched_setattr(SCHED_EXT): %w", err)
	}
	return nil
}
