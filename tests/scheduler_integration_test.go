package tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Gthulhu/scx_serverless/models"
	"github.com/Gthulhu/scx_serverless/plugin"
	"github.com/Gthulhu/scx_serverless/plugin/boundary/memory"
	"github.com/Gthulhu/scx_serverless/plugin/classify"
	"github.com/Gthulhu/scx_serverless/plugin/cmdline"
	"github.com/Gthulhu/scx_serverless/plugin/serverless"
	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// fakeProc lays out <root>/<pid>/cmdline files like procfs
func fakeProc(t *testing.T, args map[int32]int) string {
	t.Helper()
	root := t.TempDir()
	for pid, arg := range args {
		dir := filepath.Join(root, fmt.Sprint(pid))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		cmdline := fmt.Sprintf("/root/loadgen/payload/launch_function.out\x00%d\x00", arg)
		if err := os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

type harness struct {
	boundary *memory.Boundary
	sched    *serverless.Scheduler
	cancel   context.CancelFunc
	done     chan error
}

func startScheduler(t *testing.T, config *plugin.SchedConfig, procRoot string) *harness {
	t.Helper()
	classifier, err := plugin.NewClassifier(config)
	if err != nil {
		t.Fatalf("Failed to create classifier: %v", err)
	}
	resolver, err := cmdline.NewResolver(cmdline.NewProcSource(procRoot), config.Scheduler.CmdlineBufSize)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	boundary, err := memory.New(256, 256)
	if err != nil {
		t.Fatalf("Failed to create boundary: %v", err)
	}
	sched, err := serverless.New(serverless.Config{
		BatchSize:  config.Scheduler.BatchSize,
		Capacity:   4096,
		Classifier: classifier,
		Resolver:   resolver,
	}, boundary, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{boundary: boundary, sched: sched, cancel: cancel, done: make(chan error, 1)}
	go func() { h.done <- sched.Run(ctx) }()
	t.Cleanup(func() {
		h.stop(t)
		boundary.Close()
	})
	return h
}

func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err, ok := <-h.done:
		if !ok {
			return nil
		}
		close(h.done)
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
		return nil
	}
}

// collect consumes n dispatched tasks from the kernel side
func (h *harness) collect(t *testing.T, n int) []models.DispatchedTask {
	t.Helper()
	var out []models.DispatchedTask
	deadline := time.Now().Add(5 * time.Second)
	for len(out) < n {
		if time.Now().After(deadline) {
			t.Fatalf("collected %d of %d dispatched tasks", len(out), n)
		}
		task, ok := h.boundary.Consume()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		out = append(out, task)
	}
	return out
}

// TestServerlessEndToEnd drives notifications through the scheduler and
// checks order and slices on the dispatch side
func TestServerlessEndToEnd(t *testing.T) {
	procRoot := fakeProc(t, map[int32]int{100: 24, 101: 30, 102: 42, 103: 5000})
	h := startScheduler(t, plugin.DefaultConfig(), procRoot)

	for _, pid := range []int32{100, 101, 102, 103, 104} {
		if !h.boundary.Notify(pid) {
			t.Fatalf("Notify(%d) rejected", pid)
		}
	}
	got := h.collect(t, 5)

	want := []models.DispatchedTask{
		{Pid: 100, Slice: classify.SliceInfinite},
		{Pid: 101, Slice: classify.SliceInfinite},
		{Pid: 102, Slice: classify.SliceDefault},
		{Pid: 103, Slice: classify.SliceDefault},
		{Pid: 104, Slice: classify.SliceDefault},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch %d = %+v; want %+v", i, got[i], want[i])
		}
	}

	if err := h.stop(t); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	stats := h.sched.Stats()
	if stats.NrUserEnqueues != 5 || stats.NrDispatches != 5 {
		t.Errorf("stats = %+v; want 5 enqueues and 5 dispatches", stats)
	}
	if stats.NrCmdlineFailures != 1 {
		t.Errorf("NrCmdlineFailures = %d; want 1", stats.NrCmdlineFailures)
	}
	if stats.NrCurrEnqueued != 0 || h.boundary.NrScheduled() != 0 {
		t.Errorf("in flight = %d, published = %d; want 0", stats.NrCurrEnqueued, h.boundary.NrScheduled())
	}
	if h.sched.State() != serverless.StateTerminating {
		t.Errorf("State() = %v; want terminating", h.sched.State())
	}
}

// TestCustomProfileFromConfig loads a custom table through afs and runs it
func TestCustomProfileFromConfig(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/scx/integration.yaml"
	yamlConfig := `
mode: custom
scheduler:
  batch_size: 2
profile:
  min_arg: 10
  slices: [1, 0, 7000000]
`
	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(yamlConfig)); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	config, err := plugin.LoadConfig(ctx, fs, URL)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	procRoot := fakeProc(t, map[int32]int{1: 10, 2: 11, 3: 12})
	h := startScheduler(t, config, procRoot)
	for _, pid := range []int32{3, 1, 2} {
		h.boundary.Notify(pid)
	}
	got := h.collect(t, 3)

	want := map[int32]uint64{1: classify.SliceInfinite, 2: classify.SliceDefault, 3: 7000000}
	for i, pid := range []int32{3, 1, 2} {
		if got[i].Pid != pid {
			t.Errorf("dispatch %d pid = %d; want %d", i, got[i].Pid, pid)
		}
		if got[i].Slice != want[got[i].Pid] {
			t.Errorf("pid %d slice = %d; want %d", got[i].Pid, got[i].Slice, want[got[i].Pid])
		}
	}
}

// TestProtocolViolationStopsScheduler verifies an out-of-range pid ends Run
func TestProtocolViolationStopsScheduler(t *testing.T) {
	h := startScheduler(t, plugin.DefaultConfig(), t.TempDir())
	h.boundary.Notify(1 << 20)

	select {
	case err := <-h.done:
		close(h.done)
		if err == nil || !strings.Contains(err.Error(), "protocol violation") {
			t.Errorf("Run() error = %v; want protocol violation", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler kept running after a protocol violation")
	}
}
