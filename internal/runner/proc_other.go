//go:build !unix

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(*exec.Cmd) {}

type plainTarget struct {
	processTarget
}

func newTarget(proc *os.Process, done <-chan struct{}) Target {
	return &plainTarget{processTarget{proc: proc, done: done}}
}

func (p *plainTarget) Interrupt() error { return p.proc.Signal(os.Interrupt) }
func (p *plainTarget) Terminate() error { return p.proc.Signal(syscall.SIGTERM) }
func (p *plainTarget) Kill() error      { return p.proc.Kill() }

func alreadyExited(err error) bool {
	return isProcessDone(err)
}
