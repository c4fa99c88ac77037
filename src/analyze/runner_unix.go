//go:build unix

package analyze

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the command into a process group of its own so that
// killing it reaches any helper processes it forked as well.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills the command's whole process group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}

	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		// The group is already gone which is what was wanted anyway.
		return os.ErrProcessDone
	}

	return nil
}
