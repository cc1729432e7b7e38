package serverless

import "sync/atomic"

// Counters are written only by the scheduling loop. They are atomic because
// the reporter reads them from another goroutine.
type Counters struct {
	NrUserEnqueues     atomic.Uint64
	NrDispatches       atomic.Uint64
	NrDispatchesFailed atomic.Uint64
	NrSliceAssigned    atomic.Uint64
	NrCurrEnqueued     atomic.Uint64
	NrWaitErrors       atomic.Uint64
}

// Stats is a point-in-time copy of the counters.
type Stats struct {
	NrUserEnqueues     uint64 `json:"nr_user_enqueues"`
	NrDispatches       uint64 `json:"nr_dispatches"`
	NrDispatchesFailed uint64 `json:"nr_dispatches_failed"`
	NrCmdlineFailures  uint64 `json:"nr_cmdline_failures"`
	NrSliceAssigned    uint64 `json:"nr_slice_assigned"`
	NrCurrEnqueued     uint64 `json:"nr_curr_enqueued"`
	NrWaitErrors       uint64 `json:"nr_wait_errors"`
	// NrInboundErrors is zero when the boundary does not count failed pops.
	NrInboundErrors uint64 `json:"nr_inbound_errors"`
}

func (c *Counters) snapshot(cmdlineFailures uint64) Stats {
	return Stats{
		NrUserEnqueues:     c.NrUserEnqueues.Load(),
		NrDispatches:       c.NrDispatches.Load(),
		NrDispatchesFailed: c.NrDispatchesFailed.Load(),
		NrCmdlineFailures:  cmdlineFailures,
		NrSliceAssigned:    c.NrSliceAssigned.Load(),
		NrCurrEnqueued:     c.NrCurrEnqueued.Load(),
		NrWaitErrors:       c.NrWaitErrors.Load(),
	}
}
