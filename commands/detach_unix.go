//go:build unix

package commands

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so it survives the caller.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
