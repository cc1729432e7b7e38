package serverless

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Gthulhu/scx_serverless/models"
	"github.com/Gthulhu/scx_serverless/plugin"
	"github.com/joeycumines/go-catrate"
	"github.com/rs/zerolog"
)

var (
	// ErrProtocolViolation means the kernel side reported a pid the
	// directory cannot hold. The loop terminates on it.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrTerminated is returned by Run on a scheduler that already stopped.
	ErrTerminated = errors.New("scheduler terminated")
)

// DefaultBatchSize is the number of tasks dispatched per cycle.
const DefaultBatchSize = 8

// State of the scheduling loop.
type State int32

const (
	StateRunning State = iota
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ArgResolver recovers the numeric invocation argument of a task.
// *cmdline.Resolver implements it.
type ArgResolver interface {
	Arg(pid int32) (int64, error)
	Failures() uint64
}

// Config holds the collaborators of a Scheduler.
type Config struct {
	// BatchSize caps the dispatches per cycle, DefaultBatchSize when 0.
	BatchSize uint32
	// Capacity is the directory size, normally pid_max.
	Capacity   int
	Classifier plugin.SliceClassifier
	Resolver   ArgResolver
	// WarnRates limits warnings per failure category, see catrate.NewLimiter.
	// Nil uses one per second and ten per minute.
	WarnRates map[time.Duration]int
}

// Scheduler is the single threaded drain/dispatch engine. Drain,
// DispatchBatch and Run must be called from one goroutine; Stats and State
// are safe from any goroutine.
type Scheduler struct {
	batchSize  uint32
	dir        *Directory
	queue      *Queue
	classifier plugin.SliceClassifier
	resolver   ArgResolver
	boundary   plugin.Boundary
	log        zerolog.Logger
	limiter    *catrate.Limiter

	counters Counters
	state    atomic.Int32

	// reused across calls so records passed to the boundary never escape
	in  models.EnqueuedTask
	out models.DispatchedTask
}

// New allocates the directory and returns a scheduler bound to b.
func New(cfg Config, b plugin.Boundary, log zerolog.Logger) (*Scheduler, error) {
	if b == nil {
		return nil, fmt.Errorf("boundary cannot be nil")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.WarnRates == nil {
		cfg.WarnRates = map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		}
	}
	dir, err := NewDirectory(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		batchSize:  cfg.BatchSize,
		dir:        dir,
		queue:      NewQueue(dir),
		classifier: cfg.Classifier,
		resolver:   cfg.Resolver,
		boundary:   b,
		log:        log.With().Str("component", "scheduler").Logger(),
		limiter:    catrate.NewLimiter(cfg.WarnRates),
	}, nil
}

// Run drives drain, dispatch and wait until ctx is done, the waker closes or
// a fatal error occurs. Cancelling ctx releases a blocked wait.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.State() == StateTerminating {
		return ErrTerminated
	}
	defer s.state.Store(int32(StateTerminating))

	stop := context.AfterFunc(ctx, func() {
		if err := s.boundary.Interrupt(); err != nil {
			s.log.Warn().Err(err).Msg("failed to interrupt waker")
		}
	})
	defer stop()

	s.log.Info().Uint32("batch_size", s.batchSize).Int("capacity", s.dir.Len()).Msg("scheduler running")
	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("scheduler terminating")
			return nil
		}
		if _, err := s.Drain(); err != nil {
			s.log.Error().Err(err).Msg("drain failed, terminating")
			return err
		}
		s.DispatchBatch()
		if !s.queue.Empty() {
			continue
		}

		if drift := s.counters.NrCurrEnqueued.Load(); drift != 0 {
			s.log.Warn().Uint64("nr_curr_enqueued", drift).Msg("queue empty, resetting counter")
			s.counters.NrCurrEnqueued.Store(0)
		}
		if err := s.boundary.Wait(); err != nil {
			if errors.Is(err, plugin.ErrWakerClosed) {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("wait for work: %w", err)
			}
			s.counters.NrWaitErrors.Add(1)
			if _, ok := s.limiter.Allow("wait"); ok {
				s.log.Warn().Err(err).Msg("wait for work interrupted")
			}
		}
	}
}

// State returns the loop state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	st := s.counters.snapshot(s.resolver.Failures())
	if c, ok := s.boundary.(plugin.InboundErrorCounter); ok {
		st.NrInboundErrors = c.PopErrors()
	}
	return st
}

// QueueLen returns the live dispatch queue length. Loop goroutine only.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

// Directory exposes the task arena. Loop goroutine only.
func (s *Scheduler) Directory() *Directory {
	return s.dir
}
