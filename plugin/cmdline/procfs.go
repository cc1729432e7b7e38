package cmdline

import (
	"strconv"

	"golang.org/x/sys/unix"
)

const cmdlineSuffix = "/cmdline\x00"

// ProcSource reads <Root>/<pid>/cmdline. The path is assembled in a buffer
// owned by the source, so a ProcSource is not safe for concurrent use.
type ProcSource struct {
	Root string

	path   []byte
	prefix int
}

// NewProcSource returns a source rooted at root, "/proc" when empty.
func NewProcSource(root string) *ProcSource {
	if root == "" {
		root = "/proc"
	}
	// room for the widest pid and the NUL-terminated suffix
	path := make([]byte, 0, len(root)+1+20+len(cmdlineSuffix))
	path = append(path, root...)
	path = append(path, '/')
	return &ProcSource{Root: root, path: path, prefix: len(path)}
}

// ReadArgs implements ArgSource. It goes straight to the syscalls so the
// descriptor never reaches the runtime poller, and it does not allocate.
// An open failure is reported as ErrNotFound and a failed read as
// ErrUnreadable.
func (p *ProcSource) ReadArgs(pid int32, buf []byte) (int, error) {
	p.path = strconv.AppendInt(p.path[:p.prefix], int64(pid), 10)
	p.path = append(p.path, cmdlineSuffix...)
	fd, errno := openPath(p.path)
	if errno != 0 {
		return 0, ErrNotFound
	}
	defer unix.Close(fd)

	total := 0
	for total < len(buf) {
		n, err := unix.Read(fd, buf[total:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, ErrUnreadable
		}
		if n == 0 {
			break
		}
		total += n
	}
	return total, nil
}
