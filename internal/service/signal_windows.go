//go:build windows

package service

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// signalsSupported is false on Windows: a named stop signal degrades to a
// best-effort destroy of the process tree. A stop command still works.
const signalsSupported = false

func parseSignal(name string) (syscall.Signal, error) {
	return 0, fmt.Errorf("signals are not supported on windows (%s)", name)
}

// killProcess terminates a single process.
func killProcess(pid int, _ syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

// killGroup terminates the root process; descendants are handled by the
// enumerating destroy path.
func killGroup(pid int, sig syscall.Signal) error {
	return killProcess(pid, sig)
}

func configureSysProcAttr(cmd *exec.Cmd) {}
