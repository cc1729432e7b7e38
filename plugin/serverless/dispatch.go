package serverless

// DispatchBatch pushes up to the batch size from the head of the queue and
// returns how many were accepted. A rejected push counts as a failure, stays
// at the head and ends the batch. The scheduled count is published in every
// case.
func (s *Scheduler) DispatchBatch() int {
	var n uint32
	for n < s.batchSize {
		pid, ok := s.queue.Front()
		if !ok {
			break
		}
		s.out.Pid = pid
		s.out.Slice = s.dir.entries[pid].Slice
		if err := s.boundary.Push(&s.out); err != nil {
			s.counters.NrDispatchesFailed.Add(1)
			s.log.Debug().Err(err).Int32("pid", pid).Msg("dispatch rejected")
			break
		}
		s.queue.PopFront()
		s.counters.NrDispatches.Add(1)
		s.counters.NrCurrEnqueued.Add(^uint64(0))
		n++
	}
	s.boundary.SetNrScheduled(s.counters.NrCurrEnqueued.Load())
	return int(n)
}
