//go:build !windows

package service

import (
	"fmt"
	"os/exec"
	"syscall"
)

// signalsSupported reports whether named stop signals can be delivered on
// this host. On non-POSIX hosts the signal path degrades to destroy.
const signalsSupported = true

// parseSignal maps a stop-spec signal name to the host signal.
func parseSignal(name string) (syscall.Signal, error) {
	switch name {
	case "SIGINT":
		return syscall.SIGINT, nil
	case "SIGTERM":
		return syscall.SIGTERM, nil
	case "SIGHUP":
		return syscall.SIGHUP, nil
	case "SIGKILL":
		return syscall.SIGKILL, nil
	case "SIGQUIT":
		return syscall.SIGQUIT, nil
	default:
		return 0, fmt.Errorf("unknown signal %q", name)
	}
}

// killProcess sends a signal to a single process.
func killProcess(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

// killGroup signals the whole process group rooted at pid. Children spawned
// by the service's shell share the group thanks to Setpgid.
func killGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

// configureSysProcAttr places the child in a new process group so the stop
// path can signal the group as a unit.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
