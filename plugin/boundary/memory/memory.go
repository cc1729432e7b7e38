// Package memory is an in-process kernel boundary. The scheduler side
// implements plugin.Boundary; Notify, Consume, NrQueued and NrScheduled play
// the kernel side from another goroutine.
package memory

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Gthulhu/scx_serverless/models"
	"github.com/Gthulhu/scx_serverless/plugin"
	"github.com/Gthulhu/scx_serverless/plugin/wake"
)

// ErrFull is returned by Push when the outbound queue is at capacity.
var ErrFull = errors.New("memory boundary: outbound queue full")

// Boundary connects a producer of notifications to the scheduler through
// bounded channels. One producer and one consumer per direction.
type Boundary struct {
	wake.Notifier

	inbound  chan int32
	outbound chan models.DispatchedTask

	nrQueued    atomic.Uint64
	nrScheduled atomic.Uint64
}

// New creates a boundary whose queues hold inCap and outCap records.
func New(inCap, outCap int) (*Boundary, error) {
	if inCap <= 0 || outCap <= 0 {
		return nil, fmt.Errorf("memory boundary: capacities must be positive, got %d/%d", inCap, outCap)
	}
	n, err := wake.New()
	if err != nil {
		return nil, fmt.Errorf("memory boundary: %w", err)
	}
	return &Boundary{
		Notifier: n,
		inbound:  make(chan int32, inCap),
		outbound: make(chan models.DispatchedTask, outCap),
	}, nil
}

// Pop implements plugin.Inbound.
func (b *Boundary) Pop(t *models.EnqueuedTask) bool {
	select {
	case pid := <-b.inbound:
		t.Pid = pid
		return true
	default:
		return false
	}
}

// Push implements plugin.Outbound.
func (b *Boundary) Push(t *models.DispatchedTask) error {
	select {
	case b.outbound <- *t:
		return nil
	default:
		return ErrFull
	}
}

// SetNrQueued implements plugin.Signals.
func (b *Boundary) SetNrQueued(n uint64) { b.nrQueued.Store(n) }

// SetNrScheduled implements plugin.Signals.
func (b *Boundary) SetNrScheduled(n uint64) { b.nrScheduled.Store(n) }

// Notify reports pid as runnable and wakes the scheduler. It returns false
// when the inbound queue is full.
func (b *Boundary) Notify(pid int32) bool {
	select {
	case b.inbound <- pid:
	default:
		return false
	}
	b.nrQueued.Add(1)
	_ = b.Signal()
	return true
}

// Consume takes the next dispatched task, if any.
func (b *Boundary) Consume() (models.DispatchedTask, bool) {
	select {
	case t := <-b.outbound:
		return t, true
	default:
		return models.DispatchedTask{}, false
	}
}

// NrQueued returns the queued count as last published.
func (b *Boundary) NrQueued() uint64 { return b.nrQueued.Load() }

// NrScheduled returns the scheduled count as last published.
func (b *Boundary) NrScheduled() uint64 { return b.nrScheduled.Load() }

var _ plugin.Boundary = (*Boundary)(nil)
