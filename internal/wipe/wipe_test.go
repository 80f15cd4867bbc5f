package wipe

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	opts    Options
	out     *bytes.Buffer
	nodeDir string
	farmDir string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		out:     &bytes.Buffer{},
		nodeDir: filepath.Join(dir, "node"),
		farmDir: filepath.Join(dir, "farms"),
	}
	f.opts = Options{
		Out:          f.out,
		SettingsPath: filepath.Join(dir, "settings.toml"),
		SummaryPath:  filepath.Join(dir, "summary.toml"),
		LockPath:     filepath.Join(dir, "pulsar.lock"),
	}

	cfg := config.Default()
	cfg.Farmer.RewardAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	cfg.Farmer.FarmDirectory = f.farmDir
	cfg.Node.Directory = f.nodeDir
	cfg.Node.Name = "wiper"
	require.NoError(t, config.SaveFile(f.opts.SettingsPath, cfg))

	for _, p := range []string{
		filepath.Join(f.nodeDir, "db", "chain.db"),
		filepath.Join(f.farmDir, "plot.bin"),
		f.opts.SummaryPath,
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return f
}

func TestWipe(t *testing.T) {
	tests := []struct {
		name        string
		farmer      bool
		node        bool
		wantNode    bool
		wantFarm    bool
		wantSummary bool
	}{
		{name: "everything", wantNode: true, wantFarm: true, wantSummary: true},
		{name: "farmer only", farmer: true, wantFarm: true, wantSummary: true},
		{name: "node only", node: true, wantNode: true},
		{name: "both flags", farmer: true, node: true, wantNode: true, wantFarm: true, wantSummary: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.opts.Farmer, f.opts.Node = tt.farmer, tt.node

			res, err := Wipe(f.opts)
			require.NoError(t, err)
			assert.Equal(t, &Result{Node: tt.wantNode, Farm: tt.wantFarm, Summary: tt.wantSummary}, res)

			assert.Equal(t, tt.wantNode, !exists(f.nodeDir), "node dir")
			assert.Equal(t, tt.wantFarm, !exists(f.farmDir), "farm dir")
			assert.Equal(t, tt.wantSummary, !exists(f.opts.SummaryPath), "summary")
			assert.FileExists(t, f.opts.SettingsPath, "settings are kept")
		})
	}
}

func TestWipe_AlreadyAbsent(t *testing.T) {
	f := setup(t)
	_, err := Wipe(f.opts)
	require.NoError(t, err)

	res, err := Wipe(f.opts)
	require.NoError(t, err)
	assert.True(t, res.Node)
	assert.True(t, res.Farm)
}

func TestWipe_NoConfig(t *testing.T) {
	f := setup(t)
	require.NoError(t, os.Remove(f.opts.SettingsPath))

	res, err := Wipe(f.opts)
	require.NoError(t, err)
	assert.Equal(t, &Result{}, res)
	assert.Contains(t, f.out.String(), "valid config")
	assert.DirExists(t, f.nodeDir)
	assert.DirExists(t, f.farmDir)
}

func TestWipe_WhileFarming(t *testing.T) {
	f := setup(t)
	lock, err := instance.Acquire(f.opts.LockPath)
	require.NoError(t, err)
	defer lock.Release()

	_, err = Wipe(f.opts)
	assert.ErrorIs(t, err, ErrFarming)
	assert.DirExists(t, f.nodeDir)
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
