// Package wake provides the blocking wake channel the scheduling loop parks
// on when there is no work.
package wake

import (
	"sync"

	"github.com/Gthulhu/scx_serverless/plugin"
)

// Notifier is a Waker with its producer side.
type Notifier interface {
	plugin.Waker
	// Signal records an edge. Signals coalesce until the next Wait returns.
	Signal() error
	// Close releases resources; pending and future waits return
	// plugin.ErrWakerClosed.
	Close() error
}

// Chan is a portable Notifier built on a one-slot channel.
type Chan struct {
	ch        chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewChan returns a ready Chan.
func NewChan() *Chan {
	return &Chan{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (c *Chan) Signal() error {
	select {
	case <-c.done:
		return plugin.ErrWakerClosed
	default:
	}
	select {
	case c.ch <- struct{}{}:
	default:
	}
	return nil
}

func (c *Chan) Interrupt() error {
	return c.Signal()
}

func (c *Chan) Wait() error {
	select {
	case <-c.done:
		return plugin.ErrWakerClosed
	default:
	}
	select {
	case <-c.ch:
		return nil
	case <-c.done:
		return plugin.ErrWakerClosed
	}
}

func (c *Chan) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

var _ Notifier = (*Chan)(nil)
