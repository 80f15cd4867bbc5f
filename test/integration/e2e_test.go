//go:build integration

package integration_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autonomys/pulsar/internal/config"
	"github.com/autonomys/pulsar/internal/instance"
	"github.com/autonomys/pulsar/internal/summary"
	"github.com/autonomys/pulsar/internal/wipe"
)

// TestFullFlowConfigureFarmStateWipe tests the complete flow:
// write settings -> move the farm -> record farming progress -> wipe -> verify state.
func TestFullFlowConfigureFarmStateWipe(t *testing.T) {
	env := setupTestEnv(t)

	// Step 1: Write the settings and check they load back.
	cfg := writeConfig(t)
	loaded, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Farmer.RewardAddress != aliceAddress {
		t.Errorf("reward address = %q, want %q", loaded.Farmer.RewardAddress, aliceAddress)
	}
	if loaded.Farmer.FarmDirectory != filepath.Join(env.DataDir, "farms") {
		t.Errorf("farm directory = %q", loaded.Farmer.FarmDirectory)
	}

	// Step 2: Fake some node and farm data, then move the farm elsewhere.
	writeFile(t, filepath.Join(cfg.Node.Directory, "db", "CURRENT"), "MANIFEST-000001\n")
	writeFile(t, filepath.Join(cfg.Farmer.FarmDirectory, "plot.bin"), "plot")

	movedFarm := filepath.Join(t.TempDir(), "farm")
	if err := config.Apply(loaded, config.Update{FarmDirectory: &movedFarm}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := config.Save(loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}
	assertFileExists(t, filepath.Join(movedFarm, "plot.bin"))

	// Step 3: Record farming progress the way a farm run does.
	pledged, err := loaded.Farmer.FarmSizeBytes()
	if err != nil {
		t.Fatalf("FarmSizeBytes: %v", err)
	}
	summaryPath := filepath.Join(env.CacheDir, "summary.toml")
	f, err := summary.Open(summaryPath, &pledged)
	if err != nil {
		t.Fatalf("summary.Open: %v", err)
	}
	if _, err := f.Update(summary.UpdateFields{PlottingFinished: true, NewAuthoredCount: 2, NewParsedBlocks: 1000}); err != nil {
		t.Fatalf("summary Update: %v", err)
	}
	s, err := summary.Read(summaryPath)
	if err != nil {
		t.Fatalf("summary.Read: %v", err)
	}
	if s.AuthoredCount != 2 || s.LastProcessedBlockNum != 1000 || !s.InitialPlottingFinished {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.UserSpacePledged != pledged {
		t.Errorf("pledged = %d, want %d", s.UserSpacePledged, pledged)
	}

	// Step 4: Wiping is refused while an instance holds the lock.
	lock, err := instance.Acquire(filepath.Join(env.CacheDir, ".farmer.lock"))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := wipe.Wipe(wipe.Options{}); !errors.Is(err, wipe.ErrFarming) {
		t.Errorf("Wipe while farming: got %v, want ErrFarming", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Step 5: Wipe everything and verify what is left.
	var out bytes.Buffer
	res, err := wipe.Wipe(wipe.Options{Out: &out})
	if err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if !res.Node || !res.Farm || !res.Summary {
		t.Errorf("expected everything wiped, got %+v", res)
	}
	for _, line := range []string{"Node is wiped!", "Farmer is wiped!"} {
		if !strings.Contains(out.String(), line) {
			t.Errorf("output missing %q:\n%s", line, out.String())
		}
	}
	assertNotExists(t, cfg.Node.Directory)
	assertNotExists(t, movedFarm)
	assertNotExists(t, summaryPath)
	assertFileExists(t, filepath.Join(env.ConfigDir, "settings.toml"))
}

// TestWipeOnlyFarmerKeepsNode tests that a farmer-only wipe leaves the node database.
func TestWipeOnlyFarmerKeepsNode(t *testing.T) {
	setupTestEnv(t)
	cfg := writeConfig(t)

	writeFile(t, filepath.Join(cfg.Node.Directory, "db", "CURRENT"), "x")
	writeFile(t, filepath.Join(cfg.Farmer.FarmDirectory, "plot.bin"), "x")

	if _, err := wipe.Wipe(wipe.Options{Farmer: true, Out: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	assertDirExists(t, cfg.Node.Directory)
	assertNotExists(t, cfg.Farmer.FarmDirectory)
}
