//go:build linux

package bpf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Gthulhu/scx_serverless/models"
	"github.com/Gthulhu/scx_serverless/plugin"
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"golang.org/x/sys/unix"
)

// Boundary implements plugin.Boundary over pinned BPF maps. The scheduling
// loop owns it; only Interrupt and Close may be called concurrently.
type Boundary struct {
	enqueued   *ebpf.Map
	dispatched *ebpf.Map
	signals    *ebpf.Map
	wakeMap    *ebpf.Map
	wake       *ringbuf.Reader

	interrupted atomic.Bool
	popErrors   atomic.Uint64

	// reused so map calls do not allocate per record
	record ringbuf.Record
	slot   uint32
	value  uint64
}

// Open loads the maps pinned under pinPath.
func Open(pinPath string) (_ *Boundary, err error) {
	var maps []*ebpf.Map
	defer func() {
		if err != nil {
			for _, m := range maps {
				_ = m.Close()
			}
		}
	}()
	load := func(name string) (*ebpf.Map, error) {
		m, err := ebpf.LoadPinnedMap(filepath.Join(pinPath, name), nil)
		if err != nil {
			return nil, fmt.Errorf("load pinned map %s: %w", name, err)
		}
		maps = append(maps, m)
		return m, nil
	}

	b := &Boundary{}
	if b.enqueued, err = load(MapEnqueued); err != nil {
		return nil, err
	}
	if b.dispatched, err = load(MapDispatched); err != nil {
		return nil, err
	}
	if b.signals, err = load(MapSignals); err != nil {
		return nil, err
	}
	if b.wakeMap, err = load(MapWake); err != nil {
		return nil, err
	}
	if err = checkLayout(b); err != nil {
		return nil, err
	}
	if b.wake, err = ringbuf.NewReader(b.wakeMap); err != nil {
		return nil, fmt.Errorf("open %s reader: %w", MapWake, err)
	}
	return b, nil
}

func checkLayout(b *Boundary) error {
	if b.enqueued.Type() != ebpf.Queue || b.dispatched.Type() != ebpf.Queue {
		return fmt.Errorf("%s and %s must be queue maps", MapEnqueued, MapDispatched)
	}
	if b.dispatched.ValueSize() != 16 {
		return fmt.Errorf("%s value size %d, want 16", MapDispatched, b.dispatched.ValueSize())
	}
	if b.signals.Type() != ebpf.Array || b.signals.MaxEntries() < 2 {
		return fmt.Errorf("%s must be an array of at least 2 entries", MapSignals)
	}
	return nil
}

// Pop implements plugin.Inbound. Errors other than empty are counted and
// reported as empty.
func (b *Boundary) Pop(t *models.EnqueuedTask) bool {
	err := b.enqueued.LookupAndDelete(nil, t)
	if err == nil {
		return true
	}
	if !errors.Is(err, ebpf.ErrKeyNotExist) {
		b.popErrors.Add(1)
	}
	return false
}

// PopErrors returns how many inbound reads failed for reasons other than an
// empty queue.
func (b *Boundary) PopErrors() uint64 {
	return b.popErrors.Load()
}

// Push implements plugin.Outbound.
func (b *Boundary) Push(t *models.DispatchedTask) error {
	return b.dispatched.Update(nil, t, ebpf.UpdateAny)
}

// SetNrQueued implements plugin.Signals.
func (b *Boundary) SetNrQueued(n uint64) {
	b.setSignal(SignalNrQueued, n)
}

// SetNrScheduled implements plugin.Signals.
func (b *Boundary) SetNrScheduled(n uint64) {
	b.setSignal(SignalNrScheduled, n)
}

func (b *Boundary) setSignal(slot uint32, n uint64) {
	b.slot, b.value = slot, n
	_ = b.signals.Put(&b.slot, &b.value)
}

// Wait implements plugin.Waker. It blocks on the ring buffer until the
// kernel submits a record or Interrupt is called.
func (b *Boundary) Wait() error {
	if b.interrupted.Swap(false) {
		return nil
	}
	b.wake.SetDeadline(time.Time{})
	// Interrupt may have moved the deadline before the reset above
	if b.interrupted.Swap(false) {
		return nil
	}
	for {
		err := b.wake.ReadInto(&b.record)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, os.ErrDeadlineExceeded):
			b.interrupted.Store(false)
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		default:
			return b.waitErr(err)
		}
	}
}

func (b *Boundary) waitErr(err error) error {
	if errors.Is(err, ringbuf.ErrClosed) {
		return plugin.ErrWakerClosed
	}
	return fmt.Errorf("%s: %w", MapWake, err)
}

// Interrupt implements plugin.Waker.
func (b *Boundary) Interrupt() error {
	b.interrupted.Store(true)
	b.wake.SetDeadline(time.Now())
	return nil
}

// Close releases every map. A blocked Wait returns plugin.ErrWakerClosed.
func (b *Boundary) Close() error {
	return errors.Join(
		b.wake.Close(),
		b.enqueued.Close(),
		b.dispatched.Close(),
		b.signals.Close(),
		b.wakeMap.Close(),
	)
}

var _ plugin.Boundary = (*Boundary)(nil)
var _ plugin.InboundErrorCounter = (*Boundary)(nil)
