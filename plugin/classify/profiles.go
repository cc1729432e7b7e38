package classify

import (
	"fmt"

	reg "github.com/Gthulhu/scx_serverless/plugin/internal/registry"
)

// Argument range of the fibonacci payload launched for every invocation.
const (
	FibArgMin = 24
	FibArgMax = 46
)

const msec = 1000 * 1000

// serverlessSlices lets the short invocations (args 24-35) run to exhaustion,
// virtually making them FIFO, and leaves the long ones on the default slice.
var serverlessSlices = [FibArgMax - FibArgMin + 1]uint64{
	1, 1, 1, 1, 1, 1, 1, 1, // 24-31
	1, 1, 1, 1, // 32-35
	0, 0, 0, 0, 0, // 36-40
	0, 0, 0, 0, 0, 0, // 41-46
}

// proportionalSlices budgets every invocation with its measured duration.
var proportionalSlices = [FibArgMax - FibArgMin + 1]uint64{
	4 * msec, 5 * msec, 5 * msec, 6 * msec, 7 * msec, 8 * msec, 11 * msec, 15 * msec, // 24-31
	21 * msec, 31 * msec, 47 * msec, 72 * msec, // 32-35
	113 * msec, 179 * msec, 286 * msec, 459 * msec, 740 * msec, // 36-40
	1225 * msec, 1945 * msec, 3192 * msec, 5207 * msec, 8247 * msec, 13186 * msec, // 41-46
}

// Serverless returns the default table.
func Serverless() *Table {
	t, _ := NewTable(FibArgMin, serverlessSlices[:])
	return t
}

// Proportional returns the table of measured durations.
func Proportional() *Table {
	t, _ := NewTable(FibArgMin, proportionalSlices[:])
	return t
}

// FIFO returns a table where every known invocation runs to completion.
func FIFO() *Table {
	slices := make([]uint64, FibArgMax-FibArgMin+1)
	for i := range slices {
		slices[i] = tableInfinite
	}
	t, _ := NewTable(FibArgMin, slices)
	return t
}

func init() {
	profiles := map[string]func() *Table{
		"serverless":   Serverless,
		"proportional": Proportional,
		"fifo":         FIFO,
	}
	for mode, build := range profiles {
		build := build
		err := reg.RegisterProfile(mode, func(config *reg.SchedConfig) (reg.SliceClassifier, error) {
			return build(), nil
		})
		if err != nil {
			panic(err)
		}
	}

	// Register the table described by the configuration file
	err := reg.RegisterProfile("custom", func(config *reg.SchedConfig) (reg.SliceClassifier, error) {
		t, err := NewTable(config.Profile.MinArg, config.Profile.Slices)
		if err != nil {
			return nil, fmt.Errorf("custom profile: %w", err)
		}
		return t, nil
	})
	if err != nil {
		panic(err)
	}
}
