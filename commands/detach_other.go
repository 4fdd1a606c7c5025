//go:build !unix

package commands

import "os/exec"

// detach is a no-op where session detachment is unsupported.
func detach(_ *exec.Cmd) {}
