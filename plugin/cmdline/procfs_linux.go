package cmdline

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

var atFDCWD = unix.AT_FDCWD

// openPath opens a NUL-terminated path read-only. unix.Open takes a string
// and copies it to the heap on every call.
func openPath(path []byte) (int, unix.Errno) {
	fd, _, errno := unix.Syscall6(unix.SYS_OPENAT, uintptr(atFDCWD),
		uintptr(unsafe.Pointer(&path[0])), uintptr(unix.O_RDONLY|unix.O_CLOEXEC), 0, 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), 0
}
