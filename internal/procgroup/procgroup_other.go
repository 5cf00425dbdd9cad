//go:build !unix

package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// Isolate does nothing where process groups are unavailable.
func Isolate(cmd *exec.Cmd) {}

// Only the leader can be reached here, and it has no polite stop.
func signalGroup(cmd *exec.Cmd, sig signal) error {
	if cmd == nil || cmd.Process == nil || sig != force {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
