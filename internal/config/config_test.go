package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Chain: ChainGemini3h,
		Farmer: FarmerConfig{
			RewardAddress:   testAddress,
			FarmDirectory:   filepath.Join(dir, "farms"),
			FarmSize:        "10 GB",
			CachePercentage: 1,
		},
		Node: NodeConfig{
			Directory: filepath.Join(dir, "node"),
			Name:      "test-node",
			RPCPort:   9944,
			P2PPort:   30333,
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("PULSAR_CONFIG_DIR", t.TempDir())
	cfg := validConfig(t)
	cfg.Node.Extra = map[string]string{"blocks-pruning": "archive-canonical"}

	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	p, err := Path()
	require.NoError(t, err)
	info, err := os.Stat(p)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reward_address")
	assert.Contains(t, string(data), testAddress)

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Chain, loaded.Chain)
	assert.Equal(t, cfg.Farmer, loaded.Farmer)
	assert.Equal(t, cfg.Node.Name, loaded.Node.Name)
	assert.Equal(t, cfg.Node.Directory, loaded.Node.Directory)
	assert.Equal(t, cfg.Node.RPCPort, loaded.Node.RPCPort)
	assert.Equal(t, "archive-canonical", loaded.Node.Extra["blocks-pruning"])
}

func TestLoad_NotFound(t *testing.T) {
	t.Setenv("PULSAR_CONFIG_DIR", t.TempDir())
	assert.False(t, Exists())

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PULSAR_CONFIG_DIR", t.TempDir())
	require.NoError(t, Save(validConfig(t)))

	t.Setenv("PULSAR_FARMER_FARM_SIZE", "20 GB")
	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "20 GB", loaded.Farmer.FarmSize)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "settings.toml")
	content := `chain = "mainnet-of-nowhere"

[farmer]
reward_address = "not-an-address"
farm_directory = "/tmp/farms"
farm_size = "1 GB"

[node]
directory = "/tmp/node"
name = "n"
`
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))

	_, err := LoadFile(p)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Issues)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"small farm", func(c *Config) { c.Farmer.FarmSize = "1 GB" }, "at least"},
		{"bad checksum", func(c *Config) {
			c.Farmer.RewardAddress = strings.Replace(testAddress, "G", "H", 1)
		}, "reward_address"},
		{"unknown chain", func(c *Config) { c.Chain = "gemini-1" }, "schema"},
		{"blank name", func(c *Config) { c.Node.Name = "  " }, "schema"},
		{"cache too large", func(c *Config) { c.Farmer.CachePercentage = 90 }, "schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFarmSizeBytes(t *testing.T) {
	n, err := FarmerConfig{FarmSize: "100 GB"}.FarmSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000_000), n)
}

func TestRPCURL(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:9955", NodeConfig{RPCPort: 9955}.RPCURL())
}

func TestDefault(t *testing.T) {
	t.Setenv("PULSAR_DATA_DIR", "/data/pulsar")
	d := Default()
	assert.Equal(t, ChainGemini3h, d.Chain)
	assert.Equal(t, filepath.Join("/data/pulsar", "farms"), d.Farmer.FarmDirectory)
	assert.Equal(t, filepath.Join("/data/pulsar", "node"), d.Node.Directory)
	assert.NotEmpty(t, d.Node.Name)
}
