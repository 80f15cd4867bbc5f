// Package branding provides compile-time identity values for the CLI.
//
// The values live in branding.yaml next to this file and are baked into the
// binary with //go:embed, so a fork only has to edit the yaml.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

//go:embed banner.txt
var banner string

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName         string `yaml:"cli_name"`
	DisplayName     string `yaml:"display_name"`
	Description     string `yaml:"description"`
	AppDir          string `yaml:"app_dir"`
	EnvPrefix       string `yaml:"env_prefix"`
	GoModule        string `yaml:"go_module"`
	GitHubRepo      string `yaml:"github_repo"`
	NodeReleaseRepo string `yaml:"node_release_repo"`
	SupportURL      string `yaml:"support_url"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:         "pulsar",
			DisplayName:     "Pulsar",
			Description:     "Farm on the Subspace network from your terminal",
			AppDir:          "pulsar",
			EnvPrefix:       "PULSAR",
			GoModule:        "github.com/autonomys/pulsar",
			GitHubRepo:      "autonomys/pulsar",
			NodeReleaseRepo: "autonomys/subspace",
			SupportURL:      "https://forum.subspace.network",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "pulsar").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// AppDir returns the directory name used under the OS config, data and cache
// directories (e.g., "pulsar").
func AppDir() string { load(); return defaults.AppDir }

// EnvPrefix returns the environment variable prefix (e.g., "PULSAR").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// GitHubRepo returns the "owner/repo" of the CLI itself.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// NodeReleaseRepo returns the "owner/repo" publishing the node and farmer
// executables.
func NodeReleaseRepo() string { load(); return defaults.NodeReleaseRepo }

// SupportURL returns where users are sent when something goes wrong.
func SupportURL() string { load(); return defaults.SupportURL }

// Banner returns the ascii art printed by init.
func Banner() string { return banner }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("config_dir") → "PULSAR_CONFIG_DIR".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}

// SupportMessage is appended to fatal errors.
func SupportMessage() string {
	load()
	return "If you think this is a bug, please ask for help at " + defaults.SupportURL
}
