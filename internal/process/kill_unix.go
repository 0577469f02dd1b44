//go:build !windows

package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, which takes
// down Chrome together with its renderer and GPU helpers.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; launcher.Kill() is the fallback for the leader itself.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
