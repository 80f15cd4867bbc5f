package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/autonomys/pulsar/internal/platform"
	"github.com/autonomys/pulsar/internal/ui"
	"go.uber.org/zap"
)

const verifyTimeout = 10 * time.Second

// Request selects what Install fetches.
type Request struct {
	// Tag pins a release. Empty means the latest farming release.
	Tag string
	// Force reinstalls binaries already at the requested tag.
	Force bool
}

// Report summarizes an Install run.
type Report struct {
	Tag       string
	Installed []string
	Skipped   []string
}

// Install downloads and installs every binary in Binaries.
func (i *Installer) Install(ctx context.Context, req Request) (*Report, error) {
	release, err := i.resolve(ctx, req.Tag)
	if err != nil {
		return nil, err
	}

	rec, err := LoadRecord(i.binDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(i.binDir, 0755); err != nil {
		return nil, fmt.Errorf("creating binary directory: %w", err)
	}

	report := &Report{Tag: release.Tag}
	for _, binary := range Binaries {
		dest := filepath.Join(i.binDir, ExecutableName(binary))
		if !req.Force && rec.Tag(binary) == release.Tag && fileExists(dest) {
			report.Skipped = append(report.Skipped, binary)
			continue
		}

		entry, err := i.installOne(ctx, release, binary, dest)
		if err != nil {
			return report, fmt.Errorf("installing %s: %w", binary, err)
		}
		rec.Binaries[binary] = *entry
		report.Installed = append(report.Installed, binary)
		if err := SaveRecord(i.binDir, rec); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (i *Installer) resolve(ctx context.Context, tag string) (*Release, error) {
	if tag = strings.TrimSpace(tag); tag != "" {
		r, err := i.Tag(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("release %s: %w", tag, err)
		}
		return r, nil
	}
	return i.Latest(ctx)
}

func (i *Installer) installOne(ctx context.Context, release *Release, binary, dest string) (*InstalledBinary, error) {
	asset, err := SelectAssetForPlatform(release.Assets, binary)
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp(i.binDir, ".download-*")
	if err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	downloaded, sum, err := i.Download(ctx, asset, tmp)
	if err != nil {
		return nil, err
	}
	switch err := i.VerifyChecksum(ctx, release, asset, sum); {
	case errors.Is(err, ErrNoChecksum):
		i.logger.Warn("installing without checksum verification", zap.String("asset", asset.Name))
		ui.Warnf("%s has no published checksum, skipping verification", asset.Name)
	case err != nil:
		return nil, err
	}

	extracted, err := ExtractBinary(downloaded, tmp, binary)
	if err != nil {
		return nil, err
	}
	if err := platform.Chmod(extracted, 0755); err != nil {
		return nil, fmt.Errorf("making %s executable: %w", binary, err)
	}
	if err := ReplaceBinary(ctx, extracted, dest); err != nil {
		return nil, err
	}

	i.logger.Info("installed binary", zap.String("binary", binary), zap.String("tag", release.Tag), zap.String("path", dest))
	return &InstalledBinary{
		Tag:         release.Tag,
		Asset:       asset.Name,
		SHA256:      sum,
		InstalledAt: time.Now().UTC(),
	}, nil
}

// CheckResult compares installed binaries with the latest release.
type CheckResult struct {
	Latest    string
	Installed map[string]string
}

// UpToDate reports whether every binary is installed from Latest.
func (c *CheckResult) UpToDate() bool {
	for _, b := range Binaries {
		if c.Installed[b] != c.Latest {
			return false
		}
	}
	return true
}

// Check looks up the latest release without installing anything.
func (i *Installer) Check(ctx context.Context) (*CheckResult, error) {
	release, err := i.Latest(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := LoadRecord(i.binDir)
	if err != nil {
		return nil, err
	}
	res := &CheckResult{Latest: release.Tag, Installed: map[string]string{}}
	for _, b := range Binaries {
		if fileExists(filepath.Join(i.binDir, ExecutableName(b))) {
			res.Installed[b] = rec.Tag(b)
		}
	}
	return res, nil
}

// ReplaceBinary moves newPath to dest. An existing dest is kept as a backup
// until the new binary answers --version, and restored if it does not.
func ReplaceBinary(ctx context.Context, newPath, dest string) error {
	backupPath := dest + ".backup"
	hadOld := fileExists(dest)
	if hadOld {
		if err := os.Rename(dest, backupPath); err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
	}

	if err := os.Rename(newPath, dest); err != nil {
		// Cross-filesystem fallback.
		if copyErr := copyFile(newPath, dest); copyErr != nil {
			if hadOld {
				_ = RollbackBinary(backupPath, dest)
			}
			return fmt.Errorf("installing new binary: %w", copyErr)
		}
	}
	if err := platform.Chmod(dest, 0755); err != nil {
		return err
	}

	if err := VerifyBinary(ctx, dest); err != nil {
		if hadOld {
			if rbErr := RollbackBinary(backupPath, dest); rbErr != nil {
				return fmt.Errorf("verification failed: %w; %v", err, rbErr)
			}
			return fmt.Errorf("verification failed, rolled back: %w", err)
		}
		os.Remove(dest)
		return fmt.Errorf("verification failed: %w", err)
	}

	if hadOld {
		os.Remove(backupPath)
	}
	return nil
}

// VerifyBinary runs the binary with --version.
func VerifyBinary(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if ctx.Err() != nil {
		return fmt.Errorf("%s timed out after %s", filepath.Base(path), verifyTimeout)
	}
	if err != nil {
		return fmt.Errorf("%s exited with error: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// RollbackBinary restores the backup to dest.
func RollbackBinary(backupPath, dest string) error {
	if err := os.Rename(backupPath, dest); err != nil {
		if copyErr := copyFile(backupPath, dest); copyErr != nil {
			return fmt.Errorf("rollback failed: %w (original rename error: %v)", copyErr, err)
		}
		os.Remove(backupPath)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
