//go:build !unix

package estimator

import "os/exec"

// killProcessGroup is a no-op; exec.CommandContext kills the direct child.
func killProcessGroup(*exec.Cmd) {}
