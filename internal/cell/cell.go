// Package cell implements the bash_with_display cell magic: it runs a cell
// through bash, renders the images the cell asks to display and forwards
// the rest of the output to the host.
package cell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/deixis/bashdisplay/internal/display"
	"github.com/deixis/bashdisplay/internal/logging"
	"github.com/deixis/bashdisplay/internal/metrics"
	"github.com/deixis/bashdisplay/internal/report"
	"github.com/deixis/bashdisplay/internal/runner"
)

// Name is the name hosts register the magic under.
const Name = "bash_with_display"

// Executor runs interpreter input. Implemented by runner.Runner.
type Executor interface {
	Run(ctx context.Context, input []byte) (*runner.Result, error)
}

// Env is the host environment a cell writes to. Nil writers discard.
type Env struct {
	Stdout  io.Writer // stdout with display directives removed
	Stderr  io.Writer // stderr, unmodified
	Notice  io.Writer // one-line status messages for the user
	Display Renderer  // nil skips rendering
}

// Outcome summarises one invocation of the magic.
type Outcome struct {
	RunID    string
	State    runner.State
	Tier     runner.Tier
	ExitCode int
	Images   []string // paths rendered, in order
	Notice   string   // message written to Env.Notice, if any
}

// Magic runs cells. Store and Metrics are optional.
type Magic struct {
	Runner  Executor
	Images  ImageOpener
	Store   report.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Run executes one cell.
//
// A missing interpreter writes a single notice and returns no error. An
// interrupted run (ctx cancelled) writes the escalation notice and nothing
// else. A completed run renders every displayed image, in order, then
// writes the remaining stdout and the stderr to env. Errors opening or
// rendering an image are returned as is and stop the run before any output
// is written.
func (m *Magic) Run(ctx context.Context, cell string, env Env) (*Outcome, error) {
	log := m.logger()

	res, err := m.Runner.Run(ctx, display.Prepare(cell))
	if err != nil {
		if errors.Is(err, runner.ErrInterpreterNotFound) {
			m.Metrics.ObserveRun(string(runner.StateSpawnFailed), 0)
			log.Debug("interpreter not found", "error", err)
			msg := "Couldn't find program: " + runner.DefaultInterpreter
			if err := writeNotice(env.Notice, msg); err != nil {
				return nil, err
			}
			return &Outcome{State: runner.StateSpawnFailed, Notice: msg}, nil
		}
		return nil, err
	}

	out := &Outcome{
		RunID:    res.RunID,
		State:    res.State,
		ExitCode: res.ExitCode,
	}

	if res.State == runner.StateInterrupted {
		out.Tier = res.Escalation.Tier
		out.Notice = interruptNotice(res)
		if res.Escalation.Err != nil {
			log.Warn("terminating interpreter", "run_id", res.RunID, "pid", res.Pid, "error", res.Escalation.Err)
		}
		if out.Notice != "" {
			if err := writeNotice(env.Notice, out.Notice); err != nil {
				return nil, err
			}
		}
		m.Metrics.ObserveRun(string(res.State), res.Duration)
		m.Metrics.ObserveEscalation(res.Escalation.Tier.String())
		m.record(ctx, cell, res, "", "", nil)
		return out, nil
	}

	stdout := decode(res.Stdout)
	stderr := decode(res.Stderr)
	paths, rest := display.Extract(stdout)

	for _, path := range paths {
		img, err := m.Images.Open(path)
		if err != nil {
			return nil, err
		}
		if env.Display != nil {
			if err := env.Display.Render(img); err != nil {
				return nil, err
			}
		}
		out.Images = append(out.Images, path)
		m.Metrics.ObserveImage()
	}

	if err := writeFlush(env.Stdout, rest); err != nil {
		return nil, fmt.Errorf("writing stdout: %w", err)
	}
	if err := writeFlush(env.Stderr, stderr); err != nil {
		return nil, fmt.Errorf("writing stderr: %w", err)
	}

	if res.Truncated {
		log.Warn("cell output truncated", "run_id", res.RunID)
	}
	m.Metrics.ObserveRun(string(res.State), res.Duration)
	m.record(ctx, cell, res, rest, stderr, out.Images)
	return out, nil
}

// interruptNotice reports which escalation tier stopped the process.
func interruptNotice(res *runner.Result) string {
	if res.Escalation.Err != nil {
		return fmt.Sprintf("Error while terminating subprocess (pid=%d): %v", res.Pid, res.Escalation.Err)
	}
	switch res.Escalation.Tier {
	case runner.TierInterrupt:
		return "Process is interrupted."
	case runner.TierTerminate:
		return "Process is terminated."
	case runner.TierKill:
		return "Process is killed."
	}
	return ""
}

// record saves the run to the history store. Failures are logged only.
func (m *Magic) record(ctx context.Context, cell string, res *runner.Result, stdout, stderr string, images []string) {
	if m.Store == nil {
		return
	}
	rec := &report.RunResult{
		ID:        res.RunID,
		State:     string(res.State),
		ExitCode:  res.ExitCode,
		Cell:      cell,
		Stdout:    stdout,
		Stderr:    stderr,
		Images:    images,
		Truncated: res.Truncated,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
	if res.State == runner.StateInterrupted {
		rec.Tier = res.Escalation.Tier.String()
	}
	// The caller's context may already be cancelled for interrupted runs.
	if err := m.Store.Save(context.WithoutCancel(ctx), rec); err != nil {
		m.logger().Warn("saving run", "run_id", res.RunID, "error", err)
	}
}

func (m *Magic) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return logging.NewNop()
}

func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

type flusher interface {
	Flush() error
}

func writeFlush(w io.Writer, s string) error {
	if w == nil {
		return nil
	}
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func writeNotice(w io.Writer, msg string) error {
	return writeFlush(w, msg+"\n")
}
