package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Tier is one step of the termination escalation.
type Tier int

const (
	TierNone Tier = iota
	TierInterrupt
	TierTerminate
	TierKill
)

func (t Tier) String() string {
	switch t {
	case TierInterrupt:
		return "interrupt"
	case TierTerminate:
		return "terminate"
	case TierKill:
		return "kill"
	}
	return "none"
}

// Target is a running child that can be asked to stop with increasing force.
type Target interface {
	Pid() int
	Interrupt() error
	Terminate() error
	Kill() error
	Exited() bool
}

// Escalation records how an interrupted process was stopped.
//
// Tier is the tier after which the process was seen to exit, or TierKill
// once the kill has been sent. It is TierNone when the process was already
// gone before any tier took effect, or when Err is set.
type Escalation struct {
	Tier Tier
	Err  error
}

var tiers = []struct {
	tier Tier
	send func(Target) error
}{
	{TierInterrupt, Target.Interrupt},
	{TierTerminate, Target.Terminate},
	{TierKill, Target.Kill},
}

// Escalate stops t by sending an interrupt, then a termination request,
// then a kill. Each tier before the kill is followed by pause and a
// liveness check; the escalation ends at the first tier after which t has
// exited. A signal that finds the process already gone counts as
// delivered: the error is logged and the escalation ends at that tier. Any
// other signalling error ends the escalation and is returned in
// Escalation.Err.
func Escalate(t Target, pause time.Duration, log *slog.Logger) Escalation {
	var last Tier
	for _, step := range tiers {
		if err := step.send(t); err != nil {
			if alreadyExited(err) {
				log.Debug("process already exited", "pid", t.Pid(), "tier", step.tier.String(), "error", err)
				return Escalation{Tier: step.tier}
			}
			return Escalation{Err: fmt.Errorf("%s: %w", step.tier, err)}
		}
		last = step.tier
		if step.tier == TierKill {
			break
		}
		time.Sleep(pause)
		if t.Exited() {
			break
		}
	}
	return Escalation{Tier: last}
}

// processTarget signals the interpreter process directly; the unix variant
// signals its whole process group instead.
type processTarget struct {
	proc *os.Process
	done <-chan struct{}
}

func (p *processTarget) Pid() int { return p.proc.Pid }

func (p *processTarget) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func isProcessDone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
