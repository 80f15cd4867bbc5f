package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

// Output formats accepted by Encode.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Encode renders cfg in the given format using the settings file keys.
func Encode(cfg *Config, format string) ([]byte, error) {
	tree := cfg.settings()
	switch strings.ToLower(format) {
	case "", FormatTOML:
		return toml.Marshal(tree)
	case FormatYAML, "yml":
		return yaml.Marshal(tree)
	case FormatJSON:
		out, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want toml, yaml or json)", format)
	}
}
