//go:build unix

package runner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the interpreter in its own process group so that
// escalation signals also reach the commands it started.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

type groupTarget struct {
	processTarget
}

func newTarget(proc *os.Process, done <-chan struct{}) Target {
	return &groupTarget{processTarget{proc: proc, done: done}}
}

func (g *groupTarget) signal(sig syscall.Signal) error {
	return syscall.Kill(-g.proc.Pid, sig)
}

func (g *groupTarget) Interrupt() error { return g.signal(syscall.SIGINT) }
func (g *groupTarget) Terminate() error { return g.signal(syscall.SIGTERM) }
func (g *groupTarget) Kill() error      { return g.signal(syscall.SIGKILL) }

func alreadyExited(err error) bool {
	return isProcessDone(err) || errors.Is(err, syscall.ESRCH)
}
