package cmdline

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// DefaultBufSize bounds how much of a task's arguments is read.
const DefaultBufSize = 512

var (
	// ErrNotFound means the argument source could not be opened; the task most
	// likely exited before it was drained.
	ErrNotFound = errors.New("cmdline: task argument source not found")
	// ErrUnreadable means the source was opened but reading it failed.
	ErrUnreadable = errors.New("cmdline: task argument source unreadable")
	// ErrEmpty means the source was readable but held no bytes.
	ErrEmpty = errors.New("cmdline: task argument source is empty")
	// ErrNoArgument means the arguments contain no whitespace-separated token.
	ErrNoArgument = errors.New("cmdline: no argument after the program name")
	// ErrInvalidArgument means the last token is not a positive integer.
	ErrInvalidArgument = errors.New("cmdline: last argument is not a positive integer")
)

// ArgSource reads the NUL-separated invocation arguments of a task.
type ArgSource interface {
	// ReadArgs fills buf with at most len(buf) bytes of pid's arguments.
	// It returns ErrUnreadable when the source opened but could not be read;
	// any other error means it could not be opened.
	ReadArgs(pid int32, buf []byte) (int, error)
}

// Resolver recovers and parses the invocation argument of a task. It owns a
// fixed buffer and is not safe for concurrent use, except for Failures.
type Resolver struct {
	source   ArgSource
	buf      []byte
	failures atomic.Uint64
}

// NewResolver creates a resolver reading at most bufSize-1 bytes per task.
func NewResolver(source ArgSource, bufSize int) (*Resolver, error) {
	if source == nil {
		return nil, fmt.Errorf("cmdline: source cannot be nil")
	}
	if bufSize < 2 {
		return nil, fmt.Errorf("cmdline: buffer size must be at least 2, got %d", bufSize)
	}
	return &Resolver{
		source: source,
		buf:    make([]byte, bufSize),
	}, nil
}

// Failures returns how many reads failed so far.
func (r *Resolver) Failures() uint64 {
	return r.failures.Load()
}

// Resolve returns the arguments of pid with separators turned into spaces.
func (r *Resolver) Resolve(pid int32) (string, error) {
	b, err := r.read(pid)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Arg returns the last argument of pid as an integer without allocating.
func (r *Resolver) Arg(pid int32) (int64, error) {
	b, err := r.read(pid)
	if err != nil {
		return 0, err
	}
	return parseArg(b)
}

// read returns a view into the resolver buffer, valid until the next call.
func (r *Resolver) read(pid int32) ([]byte, error) {
	// keep the last byte free so the content always ends up terminated
	// sentinels are returned unwrapped: this runs once per drained task
	n, err := r.source.ReadArgs(pid, r.buf[:len(r.buf)-1])
	if err != nil {
		r.failures.Add(1)
		if errors.Is(err, ErrUnreadable) {
			return nil, ErrUnreadable
		}
		return nil, ErrNotFound
	}
	if n <= 0 {
		r.failures.Add(1)
		return nil, ErrEmpty
	}
	b := r.buf[:n]
	for i := range b {
		if b[i] == 0 {
			b[i] = ' '
		}
	}
	r.buf[n] = 0
	return trimRight(b), nil
}

// ParseArg returns the last whitespace-delimited token of cmdline as a
// positive integer.
func ParseArg(cmdline string) (int64, error) {
	return parseArg([]byte(cmdline))
}

func parseArg(b []byte) (int64, error) {
	b = trimRight(b)
	last := -1
	for i := len(b) - 1; i >= 0; i-- {
		if isSpace(b[i]) {
			last = i
			break
		}
	}
	if last < 0 {
		return 0, ErrNoArgument
	}
	token := b[last+1:]
	if len(token) == 0 {
		return 0, ErrInvalidArgument
	}
	var v int64
	for _, c := range token {
		if c < '0' || c > '9' {
			return 0, ErrInvalidArgument
		}
		d := int64(c - '0')
		if v > (math.MaxInt64-d)/10 {
			return 0, ErrInvalidArgument
		}
		v = v*10 + d
	}
	if v <= 0 {
		return 0, ErrInvalidArgument
	}
	return v, nil
}

func trimRight(b []byte) []byte {
	for len(b) > 0 && (isSpace(b[len(b)-1]) || b[len(b)-1] == 0) {
		b = b[:len(b)-1]
	}
	return b
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
