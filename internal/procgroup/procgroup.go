// Package procgroup starts each tool as the leader of its own process group,
// so stopping the tool also stops every helper process it forked.
package procgroup

import (
	"os/exec"
	"sync"
	"time"
)

type signal int

const (
	terminate signal = iota
	force
)

// Stopper ends a started command's process group: a polite signal first,
// then a forced one once the grace period runs out.
type Stopper struct {
	cmd   *exec.Cmd
	grace time.Duration

	mu      sync.Mutex
	stopped bool
	reaped  bool
	timer   *time.Timer
}

// NewStopper returns a Stopper for cmd, which must have been passed to
// Isolate before it was started.
func NewStopper(cmd *exec.Cmd, grace time.Duration) *Stopper {
	return &Stopper{cmd: cmd, grace: grace}
}

// Stop asks the group to exit and forces it after the grace period. Only the
// first call has an effect. It fits exec.Cmd.Cancel.
func (s *Stopper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.reaped {
		return nil
	}
	s.stopped = true
	s.timer = time.AfterFunc(s.grace, s.forceStop)
	return signalGroup(s.cmd, terminate)
}

func (s *Stopper) forceStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reaped {
		return
	}
	_ = signalGroup(s.cmd, force)
}

// Reaped must be called once Wait has returned. It disarms the forced stop,
// since the group id may be reused after that.
func (s *Stopper) Reaped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reaped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}
