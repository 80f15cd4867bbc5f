package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// OpenCommand returns the command that shows path in the system file
// browser.
func OpenCommand(path string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path), nil
	case "windows":
		return exec.Command("explorer", path), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", path), nil
	default:
		return nil, fmt.Errorf("opening files is not supported on %s", runtime.GOOS)
	}
}

// Open shows path in the system file browser without waiting for it.
func Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	cmd, err := OpenCommand(path)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("running %s: %w", cmd.Path, err)
	}
	// The browser outlives us; reap the launcher in the background.
	go func() { _ = cmd.Wait() }()
	return nil
}
