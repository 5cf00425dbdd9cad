//go:build linux

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// startIsolated starts a shell script as its own group leader.
func startIsolated(t *testing.T, script string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Isolate(cmd)
	require.NoError(t, cmd.Start())
	return cmd
}

func exitSignal(t *testing.T, err error) syscall.Signal {
	t.Helper()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected an exit error, got %v", err)
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	require.True(t, status.Signaled(), "process exited normally with %d", status.ExitStatus())
	return status.Signal()
}

func TestIsolateMakesGroupLeader(t *testing.T) {
	cmd := startIsolated(t, "sleep 10")
	s := NewStopper(cmd, time.Second)
	defer func() {
		_ = s.Stop()
		_ = cmd.Wait()
		s.Reaped()
	}()

	pgid, err := unix.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid)
}

func TestIsolateKeepsExistingAttributes(t *testing.T) {
	cmd := exec.Command("true")
	cmd.SysProcAttr = &syscall.SysProcAttr{Noctty: true}
	Isolate(cmd)

	assert.True(t, cmd.SysProcAttr.Setpgid)
	assert.True(t, cmd.SysProcAttr.Noctty)
}

func TestStopReachesForkedChildren(t *testing.T) {
	cmd := startIsolated(t, "sleep 10 & sleep 10")
	pgid := cmd.Process.Pid
	time.Sleep(100 * time.Millisecond)

	s := NewStopper(cmd, 5*time.Second)
	require.NoError(t, s.Stop())
	assert.Equal(t, syscall.SIGTERM, exitSignal(t, cmd.Wait()))
	s.Reaped()

	// the background sleep got the same signal
	require.Eventually(t, func() bool {
		return errors.Is(unix.Kill(-pgid, 0), unix.ESRCH)
	}, 2*time.Second, 20*time.Millisecond, "process group %d still alive", pgid)
}

func TestStopForcesAfterGrace(t *testing.T) {
	// ignores SIGTERM, so only the forced stop can end it
	cmd := startIsolated(t, "trap '' TERM; sleep 10")
	time.Sleep(50 * time.Millisecond)

	s := NewStopper(cmd, 50*time.Millisecond)
	require.NoError(t, s.Stop())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		s.Reaped()
		assert.Equal(t, syscall.SIGKILL, exitSignal(t, err))
	case <-time.After(2 * time.Second):
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		<-done
		t.Fatal("process survived the grace period")
	}
}

func TestStopOnlyOnce(t *testing.T) {
	cmd := startIsolated(t, "sleep 10")
	s := NewStopper(cmd, time.Second)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	_ = cmd.Wait()
	s.Reaped()
}

func TestStopAfterReapIsNoop(t *testing.T) {
	cmd := exec.Command("true")
	Isolate(cmd)
	require.NoError(t, cmd.Run())

	s := NewStopper(cmd, time.Millisecond)
	s.Reaped()
	assert.NoError(t, s.Stop())
	assert.Nil(t, s.timer, "no forced stop may be armed for a reaped group")
}

func TestStopUnstartedCommand(t *testing.T) {
	s := NewStopper(&exec.Cmd{}, time.Millisecond)
	assert.NoError(t, s.Stop())
	time.Sleep(5 * time.Millisecond)
	s.Reaped()
}
