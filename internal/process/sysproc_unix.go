//go:build !windows

package process

import (
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureSysProcAttr puts the child in its own process group so a Ctrl-C
// in the terminal reaches pulsar only, which then stops children in order.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

const darwinOpenMax = 10240

// RaiseFileLimit lifts the soft open-file limit to the hard limit. The node
// and farmer keep many files and sockets open.
func RaiseFileLimit() (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	if lim.Cur >= lim.Max {
		return uint64(lim.Cur), nil
	}
	lim.Cur = lim.Max
	// macOS rejects values above OPEN_MAX.
	if runtime.GOOS == "darwin" && lim.Cur > darwinOpenMax {
		lim.Cur = darwinOpenMax
	}
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	return uint64(lim.Cur), nil
}
