package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/autonomys/pulsar/internal/ui"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// ErrNoChecksum is returned by VerifyChecksum when the release publishes no
// checksum for the asset.
var ErrNoChecksum = errors.New("release publishes no checksum")

// Download fetches asset into destDir and returns the file path and its
// SHA-256.
func (i *Installer) Download(ctx context.Context, asset *Asset, destDir string) (string, string, error) {
	destPath := filepath.Join(destDir, asset.Name)

	resp, err := i.get(ctx, asset.DownloadURL)
	if err != nil {
		return "", "", fmt.Errorf("downloading %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return "", "", fmt.Errorf("creating download file: %w", err)
	}
	defer f.Close()

	total := resp.ContentLength
	bar := ui.NewProgressLine(i.out, "Downloading "+binaryOf(asset.Name), i.interactive)
	h := sha256.New()
	var downloaded int64

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return "", "", fmt.Errorf("writing download: %w", writeErr)
			}
			h.Write(buf[:n])
			downloaded += int64(n)
			if total > 0 {
				bar.Update(float64(downloaded)/float64(total),
					fmt.Sprintf("(%s/%s)", humanize.Bytes(uint64(downloaded)), humanize.Bytes(uint64(total))))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", "", fmt.Errorf("reading download stream: %w", readErr)
		}
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("writing download: %w", err)
	}
	bar.Done(fmt.Sprintf("Downloaded %s (%s)", asset.Name, humanize.Bytes(uint64(downloaded))))

	sum := hex.EncodeToString(h.Sum(nil))
	i.logger.Debug("downloaded asset", zap.String("asset", asset.Name), zap.Int64("bytes", downloaded), zap.String("sha256", sum))
	return destPath, sum, nil
}

// VerifyChecksum compares sum with the checksum the release publishes for
// asset, either in checksums.txt or in <asset>.sha256.
func (i *Installer) VerifyChecksum(ctx context.Context, release *Release, asset *Asset, sum string) error {
	var source *Asset
	for idx := range release.Assets {
		a := &release.Assets[idx]
		if a.Name == asset.Name+".sha256" || a.Name == asset.Name+".sha256sum" {
			source = a
			break
		}
		if a.Name == "checksums.txt" {
			source = a
		}
	}
	if source == nil {
		return ErrNoChecksum
	}

	resp, err := i.get(ctx, source.DownloadURL)
	if err != nil {
		return fmt.Errorf("downloading checksums: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading checksums: %w", err)
	}

	expected := findChecksum(string(body), asset.Name)
	if expected == "" {
		return fmt.Errorf("no checksum found for %s in %s", asset.Name, source.Name)
	}
	if !strings.EqualFold(expected, sum) {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", asset.Name, expected, sum)
	}
	return nil
}

// findChecksum parses "sha256  filename" lines. A single bare hash is
// accepted for per-asset files.
func findChecksum(body, name string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) == 2 && strings.TrimPrefix(parts[1], "*") == name {
			return parts[0]
		}
	}
	if len(lines) == 1 {
		if parts := strings.Fields(lines[0]); len(parts) == 1 {
			return parts[0]
		}
	}
	return ""
}

// ExtractBinary returns the path of binary inside a downloaded asset. Plain
// executables are returned as is; tar.gz and zip archives are unpacked into
// destDir.
func ExtractBinary(assetPath, destDir, binary string) (string, error) {
	switch {
	case strings.HasSuffix(assetPath, ".zip"):
		return extractFromZip(assetPath, destDir, binary)
	case isArchive(assetPath):
		return extractFromTarGz(assetPath, destDir, binary)
	default:
		return assetPath, nil
	}
}

func matchesBinary(entry, binary string) bool {
	base := filepath.Base(entry)
	return base == binary || base == binary+".exe" || strings.HasPrefix(base, binary+"-")
}

func extractFromTarGz(archivePath, destDir, binary string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !matchesBinary(hdr.Name, binary) {
			continue
		}
		return writeExecutable(filepath.Join(destDir, filepath.Base(hdr.Name)), tr)
	}
	return "", fmt.Errorf("%s not found in archive", binary)
}

func extractFromZip(archivePath, destDir, binary string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !matchesBinary(f.Name, binary) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening zip entry: %w", err)
		}
		path, err := writeExecutable(filepath.Join(destDir, filepath.Base(f.Name)), rc)
		rc.Close()
		return path, err
	}
	return "", fmt.Errorf("%s not found in zip archive", binary)
}

func writeExecutable(dest string, r io.Reader) (string, error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return "", fmt.Errorf("creating binary file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("extracting binary: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}
	return dest, nil
}

func (i *Installer) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return resp, nil
}

func binaryOf(asset string) string {
	for _, b := range Binaries {
		if strings.HasPrefix(asset, b) {
			return b
		}
	}
	return asset
}
