//go:build windows

package analyze

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op, process groups are a unix concept.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}

	return cmd.Process.Kill()
}
