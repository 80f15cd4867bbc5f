//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/autonomys/pulsar/internal/config"
)

const aliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

// testEnv holds paths to isolated test directories.
type testEnv struct {
	ConfigDir string // PULSAR_CONFIG_DIR, holds settings.toml
	DataDir   string // PULSAR_DATA_DIR, default node and farm directories
	CacheDir  string // PULSAR_CACHE_DIR, summary and instance lock
	BinDir    string // PULSAR_BIN_DIR, installed executables
	LogDir    string // PULSAR_LOG_DIR
}

// setupTestEnv creates isolated temp directories and sets environment variables
// so every pulsar operation is sandboxed. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ConfigDir: t.TempDir(),
		DataDir:   t.TempDir(),
		CacheDir:  t.TempDir(),
		BinDir:    t.TempDir(),
		LogDir:    t.TempDir(),
	}

	t.Setenv("PULSAR_CONFIG_DIR", env.ConfigDir)
	t.Setenv("PULSAR_DATA_DIR", env.DataDir)
	t.Setenv("PULSAR_CACHE_DIR", env.CacheDir)
	t.Setenv("PULSAR_BIN_DIR", env.BinDir)
	t.Setenv("PULSAR_LOG_DIR", env.LogDir)
	t.Setenv("PULSAR_NO_UPDATE_CHECK", "1")

	return env
}

// writeConfig saves a devnet configuration using the sandbox defaults.
func writeConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Chain = config.ChainDevnet
	cfg.Farmer.RewardAddress = aliceAddress
	cfg.Farmer.FarmSize = "2.0 GB"
	if err := config.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected file %s to exist: %v", path, err)
		return
	}
	if info.IsDir() {
		t.Errorf("expected %s to be a file, got a directory", path)
	}
}

func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory %s to exist: %v", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected %s to be gone", path)
	}
}
