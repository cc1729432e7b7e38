// Package bpf is the kernel boundary over the maps pinned by the
// scx_serverless BPF loader.
package bpf

// Names of the pinned objects under the pin directory.
const (
	MapEnqueued   = "enqueued"
	MapDispatched = "dispatched"
	MapSignals    = "usersched_signals"
	MapWake       = "wake_ringbuf"
)

// Slots of the signals array map.
const (
	SignalNrQueued    uint32 = 0
	SignalNrScheduled uint32 = 1
)
