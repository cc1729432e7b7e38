package models

// EnqueuedTask is pushed by the BPF component when a task becomes schedulable
// (see scx_serverless_enqueued_task).
type EnqueuedTask struct {
	Pid int32 // pid that uniquely identifies a task
}

// DispatchedTask is handed back to the BPF component together with the slice
// the task should run with (see scx_serverless_dispatched_task).
type DispatchedTask struct {
	Pid   int32   // pid of the task being dispatched
	_     [4]byte // keeps the C layout of the kernel record
	Slice uint64  // slice in nanoseconds; 0 lets the kernel use its default
}
