// scx_serverless is the userspace half of the serverless sched_ext scheduler.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type options struct {
	configURL   string
	batch       uint32
	verbose     bool
	printSlices bool
	mode        string
	pinPath     string
	maxRestarts int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scx_serverless:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newCommand(kernelHost())
}

func newCommand(h host) *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "scx_serverless [flags]",
		Short: "Userspace slice assignment for serverless sched_ext workloads",
		Long: `scx_serverless drains tasks reported by the scx_serverless BPF scheduler,
assigns each a slice from the last argument of its command line and
dispatches them back in FIFO batches.

Examples:
  # Run with the default table
  scx_serverless

  # Dispatch 16 tasks per cycle with debug logging
  scx_serverless -b 16 -v

  # Show the argument to slice mapping of a profile
  scx_serverless -s --mode proportional
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, h)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configURL, "config", "c", "", "Configuration file (path, file:// or mem:// URL)")
	flags.Uint32VarP(&opts.batch, "batch", "b", 0, "Tasks dispatched per cycle (default 8)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVarP(&opts.printSlices, "print-slices", "s", false, "Print the argument to slice mapping and exit")
	flags.StringVar(&opts.mode, "mode", "", "Slice profile: serverless, proportional, fifo or custom")
	flags.StringVar(&opts.pinPath, "pin-path", "", "Directory holding the pinned BPF maps")
	flags.IntVar(&opts.maxRestarts, "max-restarts", 0, "Re-bootstrap the boundary this many times after a protocol violation")

	return rootCmd
}
