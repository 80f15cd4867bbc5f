package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/autonomys/pulsar/internal/branding"
)

// Directory and file name constants.
const (
	SettingsFile = "settings.toml"
	SummaryFile  = "summary.toml"
	LockFile     = ".farmer.lock"

	NodeDir  = "node"
	FarmsDir = "farms"
	BinDir   = "bin"
	LogsDir  = "logs"
)

// Permission constants.
const (
	DirPermSecure  os.FileMode = 0700
	FilePermSecure os.FileMode = 0600
	DirPermNormal  os.FileMode = 0755
)

// ConfigDir returns the directory holding settings.toml.
// PULSAR_CONFIG_DIR wins, then <os config dir>/pulsar.
func ConfigDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("config_dir")); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(base, branding.AppDir()), nil
}

// SettingsPath returns the full path of the settings file.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFile), nil
}

// DataDir returns the root for node, farm and binary data.
// PULSAR_DATA_DIR wins, then the OS data directory:
//   - Linux: $XDG_DATA_HOME or ~/.local/share
//   - macOS: ~/Library/Application Support
//   - Windows: %AppData%
func DataDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("data_dir")); v != "" {
		return v, nil
	}
	base, err := osDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, branding.AppDir()), nil
}

// DefaultNodeDir returns where the node keeps its database unless the
// settings file says otherwise.
func DefaultNodeDir() (string, error) {
	return dataSubdir(NodeDir)
}

// DefaultFarmDir returns where plots are written unless the settings file
// says otherwise.
func DefaultFarmDir() (string, error) {
	return dataSubdir(FarmsDir)
}

// BinaryDir returns where node and farmer executables are installed.
// PULSAR_BIN_DIR wins over <data dir>/bin.
func BinaryDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("bin_dir")); v != "" {
		return v, nil
	}
	return dataSubdir(BinDir)
}

// CacheDir returns the directory for the summary file, the instance lock
// and the version check cache. PULSAR_CACHE_DIR wins over the OS cache dir.
func CacheDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("cache_dir")); v != "" {
		return v, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	return filepath.Join(base, branding.AppDir()), nil
}

// SummaryPath returns the full path of the farming summary.
func SummaryPath() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SummaryFile), nil
}

// LockPath returns the full path of the single-instance lock file.
func LockPath() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LockFile), nil
}

// LogDir returns the directory for log files. PULSAR_LOG_DIR wins, then:
//   - macOS: ~/Library/Logs/pulsar
//   - elsewhere: <data dir>/logs
func LogDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("log_dir")); v != "" {
		return v, nil
	}
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Logs", branding.AppDir()), nil
	}
	return dataSubdir(LogsDir)
}

// EnsureDir creates dir with perm if it does not exist.
func EnsureDir(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

func dataSubdir(name string) (string, error) {
	root, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func osDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// os.UserConfigDir returns %AppData% (Roaming) on Windows.
		return os.UserConfigDir()
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if v := os.Getenv("XDG_DATA_HOME"); v != "" {
			return v, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}
