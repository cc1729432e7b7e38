package serverless

import (
	"errors"
	"fmt"

	"github.com/Gthulhu/scx_serverless/plugin/classify"
	"github.com/Gthulhu/scx_serverless/plugin/cmdline"
	"github.com/rs/zerolog"
)

// DrainResult summarises one drain.
type DrainResult struct {
	// Drained is the number of notifications popped.
	Drained int
	// Admitted is the number appended to the dispatch queue.
	Admitted int
	// Duplicates is the number discarded because the task was already queued.
	Duplicates int
}

// Drain pops every pending notification, classifies newly seen tasks and
// appends them to the dispatch queue. Once the inbound queue is empty it
// publishes the queued and scheduled counts to the kernel side.
func (s *Scheduler) Drain() (DrainResult, error) {
	var res DrainResult
	for s.boundary.Pop(&s.in) {
		res.Drained++
		pid := s.in.Pid
		e := s.dir.Lookup(pid)
		if e == nil {
			return res, fmt.Errorf("%w: pid %d outside task directory [0, %d)",
				ErrProtocolViolation, pid, s.dir.Len())
		}
		if e.queued {
			res.Duplicates++
			continue
		}
		e.Slice = s.assignSlice(pid)
		s.queue.PushBack(pid)
		s.counters.NrCurrEnqueued.Add(1)
		s.counters.NrUserEnqueues.Add(1)
		res.Admitted++
		s.log.Debug().Int32("pid", pid).Uint64("slice", e.Slice).Msg("enqueued")
	}
	s.boundary.SetNrQueued(0)
	s.boundary.SetNrScheduled(s.counters.NrCurrEnqueued.Load())
	return res, nil
}

// assignSlice classifies pid from its argument, falling back to the default
// slice on any failure.
func (s *Scheduler) assignSlice(pid int32) uint64 {
	arg, err := s.resolver.Arg(pid)
	if err != nil {
		if errors.Is(err, cmdline.ErrNotFound) || errors.Is(err, cmdline.ErrUnreadable) ||
			errors.Is(err, cmdline.ErrEmpty) {
			// the limiter keeps per-category state, only consult it when the
			// warning can be written
			if s.log.GetLevel() <= zerolog.WarnLevel {
				if _, ok := s.limiter.Allow(err); ok {
					s.log.Warn().Err(err).Int32("pid", pid).Msg("cannot read task arguments, using default slice")
				}
			}
		} else {
			s.log.Debug().Err(err).Int32("pid", pid).Msg("no slice argument")
		}
		return classify.SliceDefault
	}
	s.counters.NrSliceAssigned.Add(1)
	return s.classifier.Classify(arg)
}
