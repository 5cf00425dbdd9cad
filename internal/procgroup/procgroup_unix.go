//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Isolate makes cmd the leader of a new process group when it starts.
func Isolate(cmd *exec.Cmd) {
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = &syscall.SysProcAttr{}
	}
	attr.Setpgid = true
	attr.Pgid = 0
	cmd.SysProcAttr = attr
}

func signalGroup(cmd *exec.Cmd, sig signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	num := unix.SIGTERM
	if sig == force {
		num = unix.SIGKILL
	}
	// A leader started with Pgid 0 has a group id equal to its pid.
	err := unix.Kill(-cmd.Process.Pid, num)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
