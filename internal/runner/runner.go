// Package runner owns the lifecycle of the bash process behind one cell:
// spawn, feed input, wait for exit, and stop it when the caller gives up.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/deixis/bashdisplay/internal/logging"
	"github.com/google/uuid"
)

// Defaults used when the corresponding Runner field is zero.
const (
	DefaultInterpreter = "bash"
	DefaultPause       = 100 * time.Millisecond
	DefaultReapTimeout = 2 * time.Second
)

// ErrInterpreterNotFound is returned by Run when the interpreter binary
// does not exist.
var ErrInterpreterNotFound = errors.New("interpreter not found")

// Runner executes scripts by writing them to the stdin of a fresh
// interpreter process.
type Runner struct {
	Dir         string        // working directory; empty means the current one
	Interpreter string        // binary to run; empty means bash
	MaxOutput   int           // per-stream capture cap in bytes; 0 means unlimited
	Pause       time.Duration // wait between escalation tiers
	ReapTimeout time.Duration // how long to wait for an interrupted child to be reaped
	Logger      *slog.Logger
}

// Run starts the interpreter, writes input to it and blocks until the
// process exits or ctx is cancelled. Cancellation triggers Escalate and
// returns a Result in StateInterrupted without any captured output.
//
// A missing interpreter yields an error wrapping ErrInterpreterNotFound.
func (r *Runner) Run(ctx context.Context, input []byte) (*Result, error) {
	interp := r.interpreter()
	log := r.logger()

	if r.Dir != "" {
		if _, err := os.Stat(r.Dir); err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
	}

	res := &Result{
		RunID:     uuid.New().String(),
		State:     StateSpawning,
		StartedAt: time.Now(),
	}

	cmd := exec.Command(interp)
	cmd.Dir = r.Dir
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	outW := &limitWriter{buf: &stdout, limit: r.MaxOutput}
	errW := &limitWriter{buf: &stderr, limit: r.MaxOutput}
	cmd.Stdout = outW
	cmd.Stderr = errW
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInterpreterNotFound, interp)
		}
		return nil, fmt.Errorf("starting %s: %w", interp, err)
	}
	res.Pid = cmd.Process.Pid
	res.State = StateRunning
	log.Debug("interpreter started", "run_id", res.RunID, "pid", res.Pid, "input_bytes", len(input))

	done := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		res.State = StateInterrupted
		res.Escalation = Escalate(newTarget(cmd.Process, done), r.pause(), log)
		select {
		case <-done:
			res.Reaped = true
		case <-time.After(r.reapTimeout()):
			log.Warn("interrupted process not reaped", "run_id", res.RunID, "pid", res.Pid)
		}
		res.Duration = time.Since(res.StartedAt)
		log.Debug("interpreter interrupted", "run_id", res.RunID, "tier", res.Escalation.Tier.String())
		return res, nil
	}

	res.State = StateCompleted
	res.Reaped = true
	res.Duration = time.Since(res.StartedAt)

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		// Usually a broken stdin pipe from a script that exited early.
		log.Debug("interpreter wait", "run_id", res.RunID, "error", waitErr)
	}

	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.Truncated = outW.dropped || errW.dropped
	return res, nil
}

func (r *Runner) interpreter() string {
	if r.Interpreter != "" {
		return r.Interpreter
	}
	return DefaultInterpreter
}

func (r *Runner) pause() time.Duration {
	if r.Pause > 0 {
		return r.Pause
	}
	return DefaultPause
}

func (r *Runner) reapTimeout() time.Duration {
	if r.ReapTimeout > 0 {
		return r.ReapTimeout
	}
	return DefaultReapTimeout
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.NewNop()
}

// LookPath reports where the interpreter resolves on PATH.
func (r *Runner) LookPath() (string, error) {
	path, err := exec.LookPath(r.interpreter())
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInterpreterNotFound, r.interpreter())
	}
	return path, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
// A zero limit disables the cap.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.dropped = len(p) > 0 || w.dropped
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.dropped = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
