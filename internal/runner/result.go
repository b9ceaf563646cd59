package runner

import "time"

// State is a step in the life of one run.
type State string

const (
	StateIdle        State = "idle"
	StateSpawning    State = "spawning"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateInterrupted State = "interrupted"
	StateSpawnFailed State = "spawn_failed"
)

// Result holds the outcome of a single interpreter run.
type Result struct {
	RunID      string        // unique identifier for this run
	Pid        int           // interpreter process id
	State      State         // StateCompleted or StateInterrupted
	ExitCode   int           // process exit code (completed runs only)
	Stdout     []byte        // captured stdout (completed runs only, may be truncated)
	Stderr     []byte        // captured stderr (completed runs only, may be truncated)
	Truncated  bool          // true if output exceeded the size cap
	Escalation Escalation    // how an interrupted run was stopped
	Reaped     bool          // false if the child outlived the reap timeout
	StartedAt  time.Time     // when the interpreter was started
	Duration   time.Duration // wall time until completion or interruption
}
