package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Gthulhu/scx_serverless/plugin"
	"github.com/Gthulhu/scx_serverless/plugin/boundary/bpf"
	"github.com/Gthulhu/scx_serverless/plugin/cmdline"
	"github.com/Gthulhu/scx_serverless/plugin/logging"
	"github.com/Gthulhu/scx_serverless/plugin/report"
	"github.com/Gthulhu/scx_serverless/plugin/serverless"
	"github.com/Gthulhu/scx_serverless/plugin/util"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/viant/afs"
)

// host is the kernel facing side of a run.
type host struct {
	open        func(pinPath string) (plugin.Boundary, io.Closer, error)
	readPidMax  func(path string) (int, error)
	lockMemory  func() error
	setSchedExt func() error
}

func kernelHost() host {
	return host{
		open: func(pinPath string) (plugin.Boundary, io.Closer, error) {
			b, err := bpf.Open(pinPath)
			if err != nil {
				return nil, nil, err
			}
			return b, b, nil
		},
		readPidMax:  util.ReadPidMax,
		lockMemory:  util.LockMemory,
		setSchedExt: util.SetSchedExt,
	}
}

// applyFlags overrides configuration values with the flags set on cmd.
func applyFlags(cmd *cobra.Command, opts *options, cfg *plugin.SchedConfig) {
	flags := cmd.Flags()
	if flags.Changed("batch") {
		cfg.Scheduler.BatchSize = opts.batch
	}
	if flags.Changed("mode") {
		cfg.Mode = opts.mode
	}
	if flags.Changed("pin-path") {
		cfg.BPF.PinPath = opts.pinPath
	}
	if flags.Changed("max-restarts") {
		cfg.Scheduler.MaxRestarts = opts.maxRestarts
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
}

func run(cmd *cobra.Command, opts *options, h host) error {
	// the scheduling policy belongs to a thread: the loop has to run on the
	// thread that joined SCHED_EXT
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := plugin.LoadConfig(ctx, afs.New(), opts.configURL)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	classifier, err := plugin.NewClassifier(cfg)
	if err != nil {
		return err
	}
	if opts.printSlices {
		fmt.Fprintln(cmd.OutOrStdout(), renderSlices(cfg.Mode, classifier))
		return nil
	}

	pidMax := cfg.Scheduler.PidMax
	if pidMax == 0 {
		if pidMax, err = h.readPidMax(cfg.Scheduler.PidMaxPath); err != nil {
			return err
		}
	}
	resolver, err := cmdline.NewResolver(cmdline.NewProcSource(cfg.Scheduler.ProcRoot), cfg.Scheduler.CmdlineBufSize)
	if err != nil {
		return err
	}
	if cfg.Scheduler.LockMemory {
		if err := h.lockMemory(); err != nil {
			return err
		}
	}
	if cfg.BPF.SetSchedExt {
		if err := h.setSchedExt(); err != nil {
			return err
		}
	}

	var client *report.MetricsClient
	if cfg.APIConfig.Enabled {
		client = report.NewMetricsClient(cfg.APIConfig.BaseURL, cfg.APIConfig.Token,
			time.Duration(cfg.APIConfig.Interval)*time.Second)
	}

	sc := serverless.Config{
		BatchSize:  cfg.Scheduler.BatchSize,
		Capacity:   pidMax,
		Classifier: classifier,
		Resolver:   resolver,
	}
	log.Info().Str("mode", cfg.Mode).Int("pid_max", pidMax).Str("pin_path", cfg.BPF.PinPath).Msg("starting")

	for restarts := 0; ; restarts++ {
		err := runOnce(ctx, h, cfg, sc, client, log)
		if err == nil || ctx.Err() != nil {
			log.Info().Msg("exiting")
			return nil
		}
		if !errors.Is(err, serverless.ErrProtocolViolation) || restarts >= cfg.Scheduler.MaxRestarts {
			return err
		}
		log.Warn().Err(err).Int("restart", restarts+1).Msg("restarting from a clean boundary")
	}
}

// runOnce bootstraps the boundary and a fresh scheduler and runs it until it
// stops.
func runOnce(ctx context.Context, h host, cfg *plugin.SchedConfig, sc serverless.Config, client *report.MetricsClient, log zerolog.Logger) error {
	boundary, closer, err := h.open(cfg.BPF.PinPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close boundary")
		}
	}()

	sched, err := serverless.New(sc, boundary, log)
	if err != nil {
		return err
	}

	reportCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	reporter := report.NewReporter(sched, cfg.Report.Interval, cfg.Mode, client, log)
	log.Info().Str("session_id", reporter.SessionID()).Msg("scheduler bootstrapped")
	reporter.Start(reportCtx)

	return sched.Run(ctx)
}
