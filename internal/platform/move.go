package platform

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
)

// rename is swapped in tests to simulate a move across filesystems.
var rename = os.Rename

// errNotSameDevice is ERROR_NOT_SAME_DEVICE on Windows.
const errNotSameDevice = syscall.Errno(17)

// Move renames from to to. When they are on different filesystems the tree
// is copied and the source removed; a failed copy leaves the source intact
// and removes the partial copy.
func Move(from, to string) error {
	err := rename(from, to)
	if err == nil || !crossDevice(err) {
		if err != nil {
			return fmt.Errorf("moving %s to %s: %w", from, to, err)
		}
		return nil
	}

	if err := copyTree(from, to); err != nil {
		_ = os.RemoveAll(to)
		return fmt.Errorf("copying %s to %s: %w", from, to, err)
	}
	if err := os.RemoveAll(from); err != nil {
		return fmt.Errorf("removing %s after copying it to %s: %w", from, to, err)
	}
	return nil
}

func crossDevice(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	return runtime.GOOS == "windows" && errors.Is(err, errNotSameDevice)
}

// copyTree copies the file or directory src to dst, keeping permission bits
// and symlinks. dst must not exist.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.IsDir():
			return os.Mkdir(target, info.Mode().Perm())
		case d.Type().IsRegular():
			return copyRegular(path, target, info.Mode().Perm())
		default:
			return fmt.Errorf("%s: unsupported file type %s", path, d.Type())
		}
	})
}

func copyRegular(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
