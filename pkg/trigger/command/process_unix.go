//go:build unix

package command

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the shell in its own process group so that cancellation
// kills the commands it spawned as well.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
