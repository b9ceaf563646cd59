package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Dir:       t.TempDir(),
		MaxOutput: 1 << 20,
	}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []byte("echo hello\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %q, want %q", res.State, StateCompleted)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if string(res.Stdout) != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Pid == 0 {
		t.Error("Pid is zero")
	}
	if !res.Reaped {
		t.Error("Reaped = false, want true")
	}
}

func TestRun_Stderr(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []byte("echo oops >&2\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Stderr) != "oops\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "oops\n")
	}
	if len(res.Stdout) != 0 {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []byte("exit 3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %q, want %q", res.State, StateCompleted)
	}
}

func TestRun_InterpreterNotFound(t *testing.T) {
	r := newTestRunner(t)
	r.Interpreter = "nonexistent-binary-xyz-123"
	_, err := r.Run(context.Background(), []byte("echo hi\n"))
	if !errors.Is(err, ErrInterpreterNotFound) {
		t.Fatalf("err = %v, want ErrInterpreterNotFound", err)
	}
	if !strings.Contains(err.Error(), "nonexistent-binary-xyz-123") {
		t.Errorf("error = %q, want to mention the binary name", err)
	}
}

func TestRun_InterpreterNotFound_AbsolutePath(t *testing.T) {
	r := newTestRunner(t)
	r.Interpreter = filepath.Join(r.Dir, "no-such-shell")
	_, err := r.Run(context.Background(), []byte("echo hi\n"))
	if !errors.Is(err, ErrInterpreterNotFound) {
		t.Fatalf("err = %v, want ErrInterpreterNotFound", err)
	}
}

func TestRun_MissingDir(t *testing.T) {
	r := newTestRunner(t)
	r.Dir = filepath.Join(r.Dir, "gone")
	_, err := r.Run(context.Background(), []byte("echo hi\n"))
	if err == nil {
		t.Fatal("expected error for missing working directory")
	}
	if errors.Is(err, ErrInterpreterNotFound) {
		t.Errorf("err = %v, must not be reported as a missing interpreter", err)
	}
}

func TestRun_Dir(t *testing.T) {
	r := newTestRunner(t)
	sub := filepath.Join(r.Dir, "subdir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	r.Dir = sub
	res, err := r.Run(context.Background(), []byte("pwd\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(res.Stdout), "subdir") {
		t.Errorf("Stdout = %q, want to contain 'subdir'", res.Stdout)
	}
}

func TestRun_ReadsWholeInput(t *testing.T) {
	r := newTestRunner(t)
	var b strings.Builder
	for i := 0; i < 2000; i++ {
		b.WriteString("x=1\n")
	}
	b.WriteString("echo done\n")
	res, err := r.Run(context.Background(), []byte(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Stdout) != "done\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "done\n")
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100 // very small cap

	res, err := r.Run(context.Background(), []byte("head -c 200 /dev/zero\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) > r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), r.MaxOutput)
	}
}

func TestRun_Unlimited(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 0

	res, err := r.Run(context.Background(), []byte("head -c 5000 /dev/zero\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truncated {
		t.Error("Truncated = true, want false")
	}
	if len(res.Stdout) != 5000 {
		t.Errorf("len(Stdout) = %d, want 5000", len(res.Stdout))
	}
}

func runInterrupted(t *testing.T, script string, after time.Duration) *Result {
	t.Helper()
	r := newTestRunner(t)
	r.Pause = 300 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(after, cancel)

	start := time.Now()
	res, err := r.Run(ctx, []byte(script))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 8*time.Second {
		t.Errorf("Run took %v, want escalation to stop the process early", elapsed)
	}
	if res.State != StateInterrupted {
		t.Fatalf("State = %q, want %q", res.State, StateInterrupted)
	}
	if !res.Reaped {
		t.Error("Reaped = false, want the process to be gone after escalation")
	}
	if res.Stdout != nil || res.Stderr != nil {
		t.Errorf("interrupted run captured output: stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
	if res.Escalation.Err != nil {
		t.Errorf("Escalation.Err = %v, want nil", res.Escalation.Err)
	}
	return res
}

func TestRun_InterruptStopsOnFirstTier(t *testing.T) {
	res := runInterrupted(t, "echo started\nsleep 30\n", 200*time.Millisecond)
	if res.Escalation.Tier != TierInterrupt {
		t.Errorf("Tier = %v, want %v", res.Escalation.Tier, TierInterrupt)
	}
}

func TestRun_InterruptIgnoredEscalatesToTerminate(t *testing.T) {
	res := runInterrupted(t, "trap '' INT\nsleep 30\n", 300*time.Millisecond)
	if res.Escalation.Tier != TierTerminate {
		t.Errorf("Tier = %v, want %v", res.Escalation.Tier, TierTerminate)
	}
}

func TestRun_InterruptAndTermIgnoredEscalatesToKill(t *testing.T) {
	res := runInterrupted(t, "trap '' INT TERM\nsleep 30\n", 300*time.Millisecond)
	if res.Escalation.Tier != TierKill {
		t.Errorf("Tier = %v, want %v", res.Escalation.Tier, TierKill)
	}
}
