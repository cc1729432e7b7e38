package plugin

import (
	"context"
	"errors"

	"github.com/Gthulhu/scx_serverless/models"
	reg "github.com/Gthulhu/scx_serverless/plugin/internal/registry"
	"github.com/viant/afs"
)

// ErrWakerClosed is returned by Waker.Wait once the wake source is gone.
var ErrWakerClosed = errors.New("waker closed")

// Inbound is the kernel -> userspace queue of tasks that became schedulable.
type Inbound interface {
	// Pop removes the oldest notification into t. It returns false when the
	// queue is empty, which is the normal way a drain ends.
	Pop(t *models.EnqueuedTask) bool
}

// Outbound is the userspace -> kernel queue of dispatched tasks.
type Outbound interface {
	// Push appends t. A non-nil error (typically a full queue) means the
	// kernel is not consuming fast enough and t was not accepted.
	Push(t *models.DispatchedTask) error
}

// Signals are the scalars the kernel reads to decide whether waking the
// userspace scheduler is worthwhile.
type Signals interface {
	SetNrQueued(n uint64)
	SetNrScheduled(n uint64)
}

// Waker is the edge-triggered wake channel from the kernel.
type Waker interface {
	// Wait blocks until the kernel signals new work or Interrupt is called.
	Wait() error
	// Interrupt releases a pending or future Wait. Safe from any goroutine.
	Interrupt() error
}

// Boundary bundles everything the kernel side exposes to the scheduler.
type Boundary interface {
	Inbound
	Outbound
	Signals
	Waker
}

// InboundErrorCounter is implemented by boundaries whose Pop can fail for
// reasons other than an empty queue. Such failures end a drain like an empty
// queue does, so the count is the only trace they leave.
type InboundErrorCounter interface {
	PopErrors() uint64
}

type (
	SchedConfig     = reg.SchedConfig
	Scheduler       = reg.Scheduler
	Profile         = reg.Profile
	BPFConfig       = reg.BPFConfig
	LogConfig       = reg.LogConfig
	ReportConfig    = reg.ReportConfig
	APIConfig       = reg.APIConfig
	SliceClassifier = reg.SliceClassifier
	ProfileFactory  = reg.ProfileFactory
)

// RegisterProfile registers a slice profile under the given mode.
func RegisterProfile(mode string, factory ProfileFactory) error {
	return reg.RegisterProfile(mode, factory)
}

// NewClassifier creates the slice classifier selected by config.Mode.
func NewClassifier(config *SchedConfig) (SliceClassifier, error) {
	return reg.NewClassifier(config)
}

// GetRegisteredModes returns the registered profile modes, sorted.
func GetRegisteredModes() []string {
	return reg.GetRegisteredModes()
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *SchedConfig {
	return reg.DefaultConfig()
}

// LoadConfig loads a YAML configuration from URL on top of the defaults.
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*SchedConfig, error) {
	return reg.LoadConfig(ctx, fs, URL)
}
