package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/autonomys/pulsar/internal/branding"
	"github.com/autonomys/pulsar/internal/paths"
	"github.com/autonomys/pulsar/internal/platform"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

const fileType = "toml"

// Defaults offered by init.
const (
	DefaultChain           = ChainGemini3h
	DefaultFarmSize        = "100 GB"
	DefaultCachePercentage = 1
	DefaultRPCPort         = 9944
	DefaultP2PPort         = 30333
)

// ErrNotFound is returned when settings.toml does not exist yet.
var ErrNotFound = errors.New("config file not found")

// Config is the content of settings.toml.
type Config struct {
	Chain  string       `mapstructure:"chain" json:"chain" yaml:"chain"`
	Farmer FarmerConfig `mapstructure:"farmer" json:"farmer" yaml:"farmer"`
	Node   NodeConfig   `mapstructure:"node" json:"node" yaml:"node"`
}

// FarmerConfig holds the [farmer] table.
type FarmerConfig struct {
	RewardAddress   string `mapstructure:"reward_address" json:"reward_address" yaml:"reward_address"`
	FarmDirectory   string `mapstructure:"farm_directory" json:"farm_directory" yaml:"farm_directory"`
	FarmSize        string `mapstructure:"farm_size" json:"farm_size" yaml:"farm_size"`
	CachePercentage int    `mapstructure:"cache_percentage" json:"cache_percentage" yaml:"cache_percentage"`
}

// NodeConfig holds the [node] table.
type NodeConfig struct {
	Directory string            `mapstructure:"directory" json:"directory" yaml:"directory"`
	Name      string            `mapstructure:"name" json:"name" yaml:"name"`
	RPCPort   int               `mapstructure:"rpc_port" json:"rpc_port" yaml:"rpc_port"`
	P2PPort   int               `mapstructure:"p2p_port" json:"p2p_port" yaml:"p2p_port"`
	Extra     map[string]string `mapstructure:"extra" json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Path returns the full path to settings.toml.
func Path() (string, error) { return paths.SettingsPath() }

// Dir returns the directory holding settings.toml.
func Dir() (string, error) { return paths.ConfigDir() }

// Exists reports whether settings.toml is present.
func Exists() bool {
	p, err := Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Default returns a config populated with the defaults init offers.
// Directories that cannot be resolved are left empty.
func Default() *Config {
	farmDir, _ := paths.DefaultFarmDir()
	nodeDir, _ := paths.DefaultNodeDir()
	return &Config{
		Chain: DefaultChain,
		Farmer: FarmerConfig{
			FarmDirectory:   farmDir,
			FarmSize:        DefaultFarmSize,
			CachePercentage: DefaultCachePercentage,
		},
		Node: NodeConfig{
			Directory: nodeDir,
			Name:      DefaultNodeName(),
			RPCPort:   DefaultRPCPort,
			P2PPort:   DefaultP2PPort,
		},
	}
}

// DefaultNodeName is the OS user name, or "pulsar" when it cannot be read.
func DefaultNodeName() string {
	u, err := user.Current()
	if err != nil || strings.TrimSpace(u.Username) == "" {
		return branding.CLIName()
	}
	// Windows reports DOMAIN\user.
	name := u.Username
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	if _, err := ParseNodeName(name); err != nil {
		return branding.CLIName()
	}
	return name
}

// FarmSizeBytes returns the pledged farm size in bytes.
func (f FarmerConfig) FarmSizeBytes() (uint64, error) {
	n, err := humanize.ParseBytes(f.FarmSize)
	if err != nil {
		return 0, fmt.Errorf("parsing farm size %q: %w", f.FarmSize, err)
	}
	return n, nil
}

// RPCURL returns the websocket URL the node listens on.
func (n NodeConfig) RPCURL() string {
	return fmt.Sprintf("ws://127.0.0.1:%d", n.RPCPort)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetConfigPermissions(paths.FilePermSecure)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("chain", d.Chain)
	v.SetDefault("farmer.reward_address", "")
	v.SetDefault("farmer.farm_directory", d.Farmer.FarmDirectory)
	v.SetDefault("farmer.farm_size", d.Farmer.FarmSize)
	v.SetDefault("farmer.cache_percentage", d.Farmer.CachePercentage)
	v.SetDefault("node.directory", d.Node.Directory)
	v.SetDefault("node.name", d.Node.Name)
	v.SetDefault("node.rpc_port", d.Node.RPCPort)
	v.SetDefault("node.p2p_port", d.Node.P2PPort)
	return v
}

// Load reads and validates settings.toml. Values can be overridden by
// PULSAR_* environment variables (e.g. PULSAR_FARMER_FARM_SIZE).
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(p)
}

// LoadFile reads and validates the settings file at path.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s, run `%s init` first", ErrNotFound, path, branding.CLIName())
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Save validates cfg and writes it to settings.toml.
func Save(cfg *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(p, cfg)
}

// SaveFile validates cfg and writes it to path with owner-only permissions.
func SaveFile(path string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := paths.EnsureDir(filepath.Dir(path), paths.DirPermSecure); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType(fileType)
	v.SetConfigPermissions(paths.FilePermSecure)
	for k, val := range cfg.settings() {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	// WriteConfigAs keeps the mode of an existing file.
	if err := platform.Chmod(path, paths.FilePermSecure); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}

// settings renders the config as the generic tree used for writing and
// schema validation.
func (c *Config) settings() map[string]any {
	farmer := map[string]any{
		"reward_address":   c.Farmer.RewardAddress,
		"farm_directory":   c.Farmer.FarmDirectory,
		"farm_size":        c.Farmer.FarmSize,
		"cache_percentage": c.Farmer.CachePercentage,
	}
	node := map[string]any{
		"directory": c.Node.Directory,
		"name":      c.Node.Name,
		"rpc_port":  c.Node.RPCPort,
		"p2p_port":  c.Node.P2PPort,
	}
	if len(c.Node.Extra) > 0 {
		extra := make(map[string]any, len(c.Node.Extra))
		for k, v := range c.Node.Extra {
			extra[k] = v
		}
		node["extra"] = extra
	}
	return map[string]any{
		"chain":  c.Chain,
		"farmer": farmer,
		"node":   node,
	}
}
