package installer

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Executables installed by pulsar.
const (
	NodeBinary   = "subspace-node"
	FarmerBinary = "subspace-farmer"
)

// Binaries lists every executable install fetches.
var Binaries = []string{NodeBinary, FarmerBinary}

var (
	osAliases = map[string][]string{
		"linux":   {"ubuntu", "linux"},
		"darwin":  {"macos", "darwin"},
		"windows": {"windows"},
	}
	archAliases = map[string][]string{
		"amd64": {"x86_64", "amd64"},
		"arm64": {"aarch64", "arm64"},
	}
	// Builds that need a recent CPU.
	cpuSpecific = []string{"skylake", "zen4", "v3", "v4"}
)

// SelectAssetForPlatform finds the asset of binary matching the current
// OS/arch.
func SelectAssetForPlatform(assets []Asset, binary string) (*Asset, error) {
	return selectAsset(assets, binary, runtime.GOOS, runtime.GOARCH)
}

// selectAsset matches names such as
// subspace-node-ubuntu-x86_64-skylake-gemini-3h-2024-jun-18 or
// subspace-farmer-macos-aarch64-gemini-3h-2024-jun-18.zip. When several
// CPU variants exist the most portable one wins: no CPU-specific tag, then
// fewest name parts.
func selectAsset(assets []Asset, binary, goos, goarch string) (*Asset, error) {
	osNames, archNames := osAliases[goos], archAliases[goarch]
	if osNames == nil || archNames == nil {
		return nil, fmt.Errorf("no %s builds for %s/%s", binary, goos, goarch)
	}

	var best *Asset
	bestRank := 0
	for i := range assets {
		a := &assets[i]
		if !strings.HasPrefix(a.Name, binary+"-") || isChecksumFile(a.Name) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(stripArchiveExt(a.Name), binary+"-"), "-")
		if !containsAny(parts, osNames) || !containsAny(parts, archNames) {
			continue
		}
		rank := len(parts)
		if containsAny(parts, cpuSpecific) {
			rank += 100
		}
		if best == nil || rank < bestRank {
			best, bestRank = a, rank
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no %s asset found for %s/%s", binary, goos, goarch)
	}
	return best, nil
}

// ExecutableName returns the installed file name of binary on this OS.
func ExecutableName(binary string) string {
	if runtime.GOOS == "windows" {
		return binary + ".exe"
	}
	return binary
}

func containsAny(parts, names []string) bool {
	for _, n := range names {
		if slices.Contains(parts, n) {
			return true
		}
	}
	return false
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".zip")
}

func isChecksumFile(name string) bool {
	return strings.HasSuffix(name, ".sha256") || strings.HasSuffix(name, ".sha256sum") || name == "checksums.txt"
}

func stripArchiveExt(name string) string {
	for _, ext := range []string{".tar.gz", ".tgz", ".zip", ".exe"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
