//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// configureServiceProc detaches the service from the TUI's session.
func configureServiceProc(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
