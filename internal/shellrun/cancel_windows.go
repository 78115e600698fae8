//go:build windows

package shellrun

import "os/exec"

func configureCancellation(cmd *exec.Cmd) {
	// Default context cancellation (Process.Kill) is the best available here.
	_ = cmd
}
