package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMode           = "serverless"
	DefaultBatchSize      = 8
	DefaultPidMaxPath     = "/proc/sys/kernel/pid_max"
	DefaultProcRoot       = "/proc"
	DefaultCmdlineBufSize = 512
	DefaultPinPath        = "/sys/fs/bpf/scx_serverless"
	DefaultReportInterval = time.Second
)

type Scheduler struct {
	// BatchSize is the number of tasks dispatched per cycle
	BatchSize uint32 `yaml:"batch_size"`
	// PidMax overrides the platform bound when non-zero
	PidMax         int    `yaml:"pid_max"`
	PidMaxPath     string `yaml:"pid_max_path"`
	ProcRoot       string `yaml:"proc_root"`
	CmdlineBufSize int    `yaml:"cmdline_buf_size"`
	LockMemory     bool   `yaml:"lock_memory"`
	MaxRestarts    int    `yaml:"max_restarts"`
}

// Profile holds the table used by the "custom" mode.
// Slices follow the table convention: 0 = default slice, 1 = unbounded.
type Profile struct {
	MinArg int64    `yaml:"min_arg"`
	Slices []uint64 `yaml:"slices"`
}

type BPFConfig struct {
	PinPath     string `yaml:"pin_path"`
	SetSchedExt bool   `yaml:"set_sched_ext"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ReportConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	Interval int    `yaml:"interval"`
	Enabled  bool   `yaml:"enabled"`
}

// SchedConfig holds the configuration parameters of the userspace scheduler
type SchedConfig struct {
	// Mode selects the slice profile (e.g., "serverless", "proportional", "fifo", "custom")
	Mode string `yaml:"mode"`

	Scheduler Scheduler    `yaml:"scheduler"`
	Profile   Profile      `yaml:"profile"`
	BPF       BPFConfig    `yaml:"bpf"`
	Log       LogConfig    `yaml:"log"`
	Report    ReportConfig `yaml:"report"`

	// API configuration
	APIConfig APIConfig `yaml:"api_config"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *SchedConfig {
	return &SchedConfig{
		Mode: DefaultMode,
		Scheduler: Scheduler{
			BatchSize:      DefaultBatchSize,
			PidMaxPath:     DefaultPidMaxPath,
			ProcRoot:       DefaultProcRoot,
			CmdlineBufSize: DefaultCmdlineBufSize,
			LockMemory:     true,
		},
		BPF: BPFConfig{
			PinPath:     DefaultPinPath,
			SetSchedExt: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Report: ReportConfig{
			Interval: DefaultReportInterval,
		},
		APIConfig: APIConfig{
			Interval: 5,
		},
	}
}

// LoadConfig reads a YAML configuration from any location supported by afs
// (plain path, file://, mem://) on top of DefaultConfig.
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*SchedConfig, error) {
	config := DefaultConfig()
	if URL == "" {
		return config, nil
	}
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", URL, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", URL, err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return config, nil
}

// applyDefaults restores defaults for fields a file explicitly zeroed.
func (c *SchedConfig) applyDefaults() {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.Scheduler.PidMaxPath == "" {
		c.Scheduler.PidMaxPath = d.Scheduler.PidMaxPath
	}
	if c.Scheduler.ProcRoot == "" {
		c.Scheduler.ProcRoot = d.Scheduler.ProcRoot
	}
	if c.Scheduler.CmdlineBufSize == 0 {
		c.Scheduler.CmdlineBufSize = d.Scheduler.CmdlineBufSize
	}
	if c.BPF.PinPath == "" {
		c.BPF.PinPath = d.BPF.PinPath
	}
	if c.Report.Interval == 0 {
		c.Report.Interval = d.Report.Interval
	}
	if c.APIConfig.Interval == 0 {
		c.APIConfig.Interval = d.APIConfig.Interval
	}
}

// Validate checks the values the scheduler cannot run without.
func (c *SchedConfig) Validate() error {
	if c.Scheduler.BatchSize == 0 {
		return fmt.Errorf("scheduler.batch_size must be at least 1")
	}
	if c.Scheduler.CmdlineBufSize < 2 {
		return fmt.Errorf("scheduler.cmdline_buf_size must be at least 2, got %d", c.Scheduler.CmdlineBufSize)
	}
	if c.Scheduler.PidMax < 0 {
		return fmt.Errorf("scheduler.pid_max cannot be negative")
	}
	if c.Scheduler.MaxRestarts < 0 {
		return fmt.Errorf("scheduler.max_restarts cannot be negative")
	}
	if c.Report.Interval < 0 {
		return fmt.Errorf("report.interval cannot be negative")
	}
	if c.APIConfig.Enabled && c.APIConfig.BaseURL == "" {
		return fmt.Errorf("api_config.base_url is required when api_config.enabled is set")
	}
	return nil
}
