package platform

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CreateSymlink points link at target. target may be relative to link's
// directory. On Windows without symlink privileges the file is copied and
// the target recorded in a .target sidecar.
func CreateSymlink(target, link string) error {
	err := os.Symlink(target, link)
	if err == nil || runtime.GOOS != "windows" {
		return err
	}

	src := target
	if !filepath.IsAbs(src) {
		src = filepath.Join(filepath.Dir(link), target)
	}
	if err := copyFile(src, link); err != nil {
		return fmt.Errorf("symlink fallback (copy) failed: %w", err)
	}
	// The copy is usable without the sidecar.
	_ = os.WriteFile(link+".target", []byte(target), 0644)
	return nil
}

// RemoveSymlink removes a symlink or its fallback copy and sidecar. A
// missing link is not an error.
func RemoveSymlink(path string) error {
	_ = os.Remove(path + ".target")
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ReadSymlinkTarget returns the target of a symlink created by
// CreateSymlink.
func ReadSymlinkTarget(path string) (string, error) {
	target, err := os.Readlink(path)
	if err == nil || runtime.GOOS != "windows" {
		return target, err
	}
	data, readErr := os.ReadFile(path + ".target")
	if readErr != nil {
		return "", fmt.Errorf("readlink failed and no .target sidecar found: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
