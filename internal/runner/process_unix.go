//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup runs the command in its own process group so a dev server
// it forks receives the same signal.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interruptProcessGroup sends SIGINT to the command's whole process group.
// Setpgid makes the group id equal to the child's pid.
func interruptProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
}

// killProcessGroup sends SIGKILL to the command's whole process group. It is
// also called after Wait, when the leader is gone but descendants it left in
// the group may still run; the group id stays reserved while they do.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
