//go:build windows

package execx

import "os/exec"

// On Windows the default CommandContext behaviour (kill the direct child) applies.
func configureProcessGroup(cmd *exec.Cmd) {}
