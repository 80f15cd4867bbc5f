//go:build windows

package process

import "os/exec"

func configureSysProcAttr(cmd *exec.Cmd) {}

// RaiseFileLimit is a no-op on Windows.
func RaiseFileLimit() (uint64, error) { return 0, nil }
