// Package report persists the outcome of cell runs so a host can fetch the
// complete output of an earlier run by its ID.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Store.Load for unknown run IDs.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves run results.
type Store interface {
	Save(ctx context.Context, result *RunResult) error
	Load(ctx context.Context, runID string) (*RunResult, error)
}

// Stream names accepted by RunResult.Stream.
const (
	Stdout = "stdout"
	Stderr = "stderr"
)

// RunResult is the persisted record of one cell run.
type RunResult struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	Tier      string        `json:"tier,omitempty"` // escalation tier of interrupted runs
	ExitCode  int           `json:"exit_code"`
	Cell      string        `json:"cell"`
	Stdout    string        `json:"stdout,omitempty"` // with display directives removed
	Stderr    string        `json:"stderr,omitempty"`
	Images    []string      `json:"images,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Stream returns the named output stream of the run.
func (r *RunResult) Stream(name string) (string, error) {
	switch name {
	case "", Stdout:
		return r.Stdout, nil
	case Stderr:
		return r.Stderr, nil
	}
	return "", fmt.Errorf("unknown stream %q (want %s or %s)", name, Stdout, Stderr)
}

// Tail returns the last n lines of text. A trailing newline does not count
// as an extra line. n <= 0 returns text unchanged.
func Tail(text string, n int) string {
	if n <= 0 || text == "" {
		return text
	}
	trimmed := strings.TrimSuffix(text, "\n")
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= n {
		return text
	}
	out := strings.Join(lines[len(lines)-n:], "\n")
	if trimmed != text {
		out += "\n"
	}
	return out
}

// validID rejects run IDs that are not UUIDs, which keeps them safe to use
// as file names and keys.
func validID(runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return nil
}
