package serverless

import (
	"errors"
	"fmt"
)

// ErrDirectoryAlloc is returned when the task directory cannot be sized.
var ErrDirectoryAlloc = errors.New("task directory allocation failed")

// nilIndex terminates the intrusive queue links.
const nilIndex int32 = -1

// TaskEntry is the per-pid scheduling state. Entries live for the whole
// process and are recycled when the OS reuses a pid.
type TaskEntry struct {
	// Slice is the budget assigned at the last admission, in nanoseconds.
	Slice uint64

	next   int32
	queued bool
}

// Queued reports whether the entry is linked into the dispatch queue.
func (e *TaskEntry) Queued() bool {
	return e.queued
}

// Directory is a fixed arena of TaskEntry indexed directly by pid.
type Directory struct {
	entries []TaskEntry
}

// NewDirectory allocates one entry per possible pid in [0, capacity).
func NewDirectory(capacity int) (d *Directory, err error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: invalid capacity %d", ErrDirectoryAlloc, capacity)
	}
	defer func() {
		// make panics when capacity exceeds what the platform can address
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("%w: %v", ErrDirectoryAlloc, r)
		}
	}()
	entries := make([]TaskEntry, capacity)
	for i := range entries {
		entries[i].next = nilIndex
	}
	return &Directory{entries: entries}, nil
}

// Lookup returns the entry of pid, or nil when pid is outside the arena.
func (d *Directory) Lookup(pid int32) *TaskEntry {
	if pid < 0 || int(pid) >= len(d.entries) {
		return nil
	}
	return &d.entries[pid]
}

// Len returns the arena capacity.
func (d *Directory) Len() int {
	return len(d.entries)
}
