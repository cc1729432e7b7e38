package serverless

// Queue is the FIFO of pids waiting to be dispatched. Links are stored in the
// directory entries, so pushing and popping never allocates. An entry is
// linked if and only if its queued flag is set.
type Queue struct {
	dir        *Directory
	head, tail int32
	n          int
}

// NewQueue returns an empty queue over dir.
func NewQueue(dir *Directory) *Queue {
	return &Queue{dir: dir, head: nilIndex, tail: nilIndex}
}

// PushBack links pid at the tail. The caller guarantees pid is inside the
// directory and not already queued.
func (q *Queue) PushBack(pid int32) {
	e := &q.dir.entries[pid]
	e.queued = true
	e.next = nilIndex
	if q.tail == nilIndex {
		q.head = pid
	} else {
		q.dir.entries[q.tail].next = pid
	}
	q.tail = pid
	q.n++
}

// Front returns the head pid without unlinking it.
func (q *Queue) Front() (int32, bool) {
	if q.head == nilIndex {
		return 0, false
	}
	return q.head, true
}

// PopFront unlinks the head and clears its queued flag.
func (q *Queue) PopFront() (int32, bool) {
	pid := q.head
	if pid == nilIndex {
		return 0, false
	}
	e := &q.dir.entries[pid]
	q.head = e.next
	if q.head == nilIndex {
		q.tail = nilIndex
	}
	e.next = nilIndex
	e.queued = false
	q.n--
	return pid, true
}

// Len returns the number of linked entries.
func (q *Queue) Len() int {
	return q.n
}

// Empty reports whether nothing is waiting.
func (q *Queue) Empty() bool {
	return q.head == nilIndex
}

// Each calls fn for every queued pid, head first, until fn returns false.
func (q *Queue) Each(fn func(pid int32) bool) {
	for pid := q.head; pid != nilIndex; pid = q.dir.entries[pid].next {
		if !fn(pid) {
			return
		}
	}
}
