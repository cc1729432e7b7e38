//go:build linux

package wake

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Gthulhu/scx_serverless/plugin"
	"golang.org/x/sys/unix"
)

// EventFD is an edge-triggered Notifier over an eventfd registered with
// epoll. Wait parks the thread in epoll_wait, never spinning.
type EventFD struct {
	efd  int
	epfd int

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	events [1]unix.EpollEvent
	rbuf   [8]byte
}

// NewEventFD creates the eventfd and its epoll instance.
func NewEventFD() (*EventFD, error) {
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(efd)
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(efd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, efd, &ev); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(efd)
		return nil, fmt.Errorf("epoll_ctl: %w", err)
	}
	return &EventFD{efd: efd, epfd: epfd}, nil
}

// FD returns the eventfd descriptor, for producers outside the process.
func (w *EventFD) FD() int {
	return w.efd
}

func (w *EventFD) Signal() error {
	if w.closed.Load() {
		return plugin.ErrWakerClosed
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(w.efd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			// EAGAIN: counter saturated, an edge is already pending
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd write: %w", err)
		}
	}
}

func (w *EventFD) Interrupt() error {
	return w.Signal()
}

// Wait blocks until the next edge. EINTR is retried.
func (w *EventFD) Wait() error {
	for {
		if w.closed.Load() {
			return plugin.ErrWakerClosed
		}
		n, err := unix.EpollWait(w.epfd, w.events[:], -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if w.closed.Load() {
				return plugin.ErrWakerClosed
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}
		if n == 0 {
			continue
		}
		if w.closed.Load() {
			return plugin.ErrWakerClosed
		}
		// reset the counter so it never saturates
		if _, err := unix.Read(w.efd, w.rbuf[:]); err != nil && err != unix.EAGAIN && err != unix.EINTR {
			if w.closed.Load() {
				return plugin.ErrWakerClosed
			}
			return fmt.Errorf("eventfd read: %w", err)
		}
		return nil
	}
}

func (w *EventFD) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		var buf [8]byte
		binary.NativeEndian.PutUint64(buf[:], 1)
		_, _ = unix.Write(w.efd, buf[:])
		w.closeErr = unix.Close(w.epfd)
		if err := unix.Close(w.efd); err != nil && w.closeErr == nil {
			w.closeErr = err
		}
	})
	return w.closeErr
}

var _ Notifier = (*EventFD)(nil)

// New returns the best Notifier for the platform.
func New() (Notifier, error) {
	return NewEventFD()
}
