//go:build windows

package service

import "os/exec"

// shellCommand evaluates cmdStr through cmd.exe. Note cmd does not chain
// with && the way POSIX shells do; multi-step commands should be scripts.
func shellCommand(cmdStr string) *exec.Cmd {
	// #nosec G204 -- the command comes from the operator's own config file.
	return exec.Command("cmd", "/c", cmdStr)
}
