package classify

import (
	"fmt"
	"math"
)

const (
	// SliceDefault lets the kernel side fall back to its default slice.
	SliceDefault uint64 = 0
	// SliceInfinite lets the task run to completion (SCX_SLICE_INF).
	SliceInfinite uint64 = math.MaxUint64
)

// Sentinels stored in a table. They keep one compact table able to encode
// default, unbounded and explicit nanosecond budgets.
const (
	tableDefault  uint64 = 0
	tableInfinite uint64 = 1
)

// Entry is one row of a Table, as shown by Entries.
type Entry struct {
	Arg   int64
	Slice uint64 // expanded value, as returned by Classify
}

// Table maps a contiguous argument range to slices. It is immutable after
// construction and Classify is O(1).
type Table struct {
	minArg int64
	slices []uint64
}

// NewTable builds a table whose first slot corresponds to minArg. The slices
// use the table convention: 0 = default, 1 = unbounded, else nanoseconds.
func NewTable(minArg int64, slices []uint64) (*Table, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("slice table cannot be empty")
	}
	if minArg > math.MaxInt64-int64(len(slices)-1) {
		return nil, fmt.Errorf("slice table starting at %d overflows the argument range", minArg)
	}
	t := &Table{
		minArg: minArg,
		slices: make([]uint64, len(slices)),
	}
	copy(t.slices, slices)
	return t, nil
}

// Classify returns the slice for arg. Out-of-range arguments get SliceDefault.
func (t *Table) Classify(arg int64) uint64 {
	if arg < t.minArg {
		return SliceDefault
	}
	// unsigned distance cannot overflow once arg >= minArg
	off := uint64(arg) - uint64(t.minArg)
	if off >= uint64(len(t.slices)) {
		return SliceDefault
	}
	switch v := t.slices[off]; v {
	case tableDefault:
		return SliceDefault
	case tableInfinite:
		return SliceInfinite
	default:
		return v
	}
}

// Bounds returns the inclusive argument range of the table.
func (t *Table) Bounds() (int64, int64) {
	return t.minArg, t.minArg + int64(len(t.slices)) - 1
}

// Entries lists every argument of the table with its expanded slice.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, len(t.slices))
	for i := range t.slices {
		arg := t.minArg + int64(i)
		entries[i] = Entry{Arg: arg, Slice: t.Classify(arg)}
	}
	return entries
}

// Describe renders a slice value for humans.
func Describe(slice uint64) string {
	switch slice {
	case SliceDefault:
		return "default"
	case SliceInfinite:
		return "unbounded"
	default:
		return fmt.Sprintf("%.3f ms", float64(slice)/1e6)
	}
}
