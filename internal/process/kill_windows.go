//go:build windows

package process

import (
	"bytes"
	"os/exec"
	"strconv"
)

// KillTree force-kills pid and its children using taskkill /T.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

// Alive reports whether a process with pid still exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH").Output()
	return err == nil && bytes.Contains(out, []byte(strconv.Itoa(pid)))
}
