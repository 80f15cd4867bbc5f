package installer

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/autonomys/pulsar/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTag = "gemini-3h-2024-jun-18"

func platformAssetName(t *testing.T, binary string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("install tests run shell scripts")
	}
	osNames, archNames := osAliases[runtime.GOOS], archAliases[runtime.GOARCH]
	if osNames == nil || archNames == nil {
		t.Skipf("no release builds for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	return strings.Join([]string{binary, osNames[0], archNames[0], testTag}, "-")
}

type fakeRelease struct {
	files   map[string][]byte
	release Release
}

// newFakeRelease publishes scripts for both binaries. The node gets a
// checksum file, the farmer does not.
func newFakeRelease(t *testing.T, script string) *fakeRelease {
	t.Helper()
	fr := &fakeRelease{files: map[string][]byte{}}
	fr.release = Release{Tag: testTag}

	for _, b := range Binaries {
		name := platformAssetName(t, b)
		content := []byte(script)
		fr.files["/download/"+name] = content
		fr.release.Assets = append(fr.release.Assets, Asset{Name: name})
		if b == NodeBinary {
			fr.files["/download/"+name+".sha256"] = []byte(sha(content))
			fr.release.Assets = append(fr.release.Assets, Asset{Name: name + ".sha256"})
		}
	}
	return fr
}

func (fr *fakeRelease) installer(t *testing.T, binDir string) *Installer {
	t.Helper()
	older := Release{Tag: "devnet-2024-jul-01", Prerelease: true}

	// Download URLs depend on the server address, so publish the listing
	// after the server is up.
	srv := serve(t, fr.files)
	for i := range fr.release.Assets {
		fr.release.Assets[i].DownloadURL = srv.URL + "/download/" + fr.release.Assets[i].Name
	}
	list, err := json.Marshal([]Release{older, fr.release})
	require.NoError(t, err)
	one, err := json.Marshal(fr.release)
	require.NoError(t, err)
	fr.files["/repos/autonomys/subspace/releases"] = list
	fr.files["/repos/autonomys/subspace/releases/tags/"+testTag] = one

	return New(binDir,
		WithHTTPClient(srv.Client()),
		WithAPIBase(srv.URL),
		WithRepo("autonomys/subspace"),
		WithOutput(io.Discard, false))
}

func TestInstall(t *testing.T) {
	ui.SetWriter(io.Discard)
	binDir := filepath.Join(t.TempDir(), "bin")
	inst := newFakeRelease(t, "#!/bin/sh\necho subspace 1.0\n").installer(t, binDir)

	report, err := inst.Install(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, testTag, report.Tag)
	assert.Equal(t, Binaries, report.Installed)
	assert.Empty(t, report.Skipped)

	for _, b := range Binaries {
		info, err := os.Stat(filepath.Join(binDir, b))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0111, "%s is executable", b)
	}

	rec, err := LoadRecord(binDir)
	require.NoError(t, err)
	assert.Equal(t, testTag, rec.Tag(NodeBinary))
	assert.Equal(t, testTag, rec.Tag(FarmerBinary))
	assert.NotEmpty(t, rec.Binaries[NodeBinary].SHA256)

	// Download directories are cleaned up.
	entries, err := os.ReadDir(binDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".download-"), e.Name())
	}

	check, err := inst.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, check.UpToDate())

	again, err := inst.Install(context.Background(), Request{Tag: testTag})
	require.NoError(t, err)
	assert.Empty(t, again.Installed)
	assert.Equal(t, Binaries, again.Skipped)

	forced, err := inst.Install(context.Background(), Request{Force: true})
	require.NoError(t, err)
	assert.Equal(t, Binaries, forced.Installed)
}

func TestInstall_ChecksumMismatch(t *testing.T) {
	ui.SetWriter(io.Discard)
	binDir := filepath.Join(t.TempDir(), "bin")
	fr := newFakeRelease(t, "#!/bin/sh\necho subspace\n")
	node := platformAssetName(t, NodeBinary)
	fr.files["/download/"+node+".sha256"] = []byte(strings.Repeat("0", 64))
	inst := fr.installer(t, binDir)

	_, err := inst.Install(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.NoFileExists(t, filepath.Join(binDir, NodeBinary))
}

func TestInstall_UnknownTag(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	inst := newFakeRelease(t, "#!/bin/sh\n").installer(t, binDir)

	_, err := inst.Install(context.Background(), Request{Tag: "no-such-tag"})
	assert.ErrorIs(t, err, ErrReleaseNotFound)
}

func TestCheck_NothingInstalled(t *testing.T) {
	inst := newFakeRelease(t, "#!/bin/sh\n").installer(t, t.TempDir())
	check, err := inst.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testTag, check.Latest)
	assert.Empty(t, check.Installed)
	assert.False(t, check.UpToDate())
}

func TestReplaceBinary_RollsBackBrokenBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts")
	}
	tmp := t.TempDir()
	dest := filepath.Join(tmp, NodeBinary)
	require.NoError(t, os.WriteFile(dest, []byte("#!/bin/sh\necho old\n"), 0755))
	broken := filepath.Join(tmp, "new")
	require.NoError(t, os.WriteFile(broken, []byte("#!/bin/sh\nexit 3\n"), 0755))

	err := ReplaceBinary(context.Background(), broken, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rolled back")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho old\n", string(data))
	assert.NoFileExists(t, dest+".backup")
}

func TestRollbackBinary(t *testing.T) {
	tmp := t.TempDir()
	backupPath := filepath.Join(tmp, "subspace-node.backup")
	currentPath := filepath.Join(tmp, "subspace-node")
	require.NoError(t, os.WriteFile(backupPath, []byte("original binary"), 0755))

	require.NoError(t, RollbackBinary(backupPath, currentPath))

	data, err := os.ReadFile(currentPath)
	require.NoError(t, err)
	assert.Equal(t, "original binary", string(data))
	assert.NoFileExists(t, backupPath)
}

func TestRecord_Missing(t *testing.T) {
	rec, err := LoadRecord(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, rec.Tag(NodeBinary))
}
