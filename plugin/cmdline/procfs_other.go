//go:build !linux

package cmdline

import "golang.org/x/sys/unix"

func openPath(path []byte) (int, unix.Errno) {
	fd, err := unix.Open(unix.ByteSliceToString(path), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errno, ok := err.(unix.Errno); ok {
			return -1, errno
		}
		return -1, unix.EINVAL
	}
	return fd, 0
}
