package config

import (
	"encoding/json"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestEncode(t *testing.T) {
	cfg := validConfig(t)
	cfg.Node.Extra = map[string]string{"blocks-pruning": "256"}

	decoders := map[string]func([]byte, any) error{
		FormatTOML: toml.Unmarshal,
		FormatYAML: yaml.Unmarshal,
		FormatJSON: json.Unmarshal,
	}
	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			out, err := Encode(cfg, format)
			require.NoError(t, err)

			var tree map[string]any
			require.NoError(t, decode(out, &tree))
			assert.Equal(t, ChainGemini3h, tree["chain"])
			farmer, ok := tree["farmer"].(map[string]any)
			require.True(t, ok, "farmer table in %s", out)
			assert.Equal(t, testAddress, farmer["reward_address"])
			node, ok := tree["node"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, map[string]any{"blocks-pruning": "256"}, node["extra"])
		})
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode(validConfig(t), "xml")
	assert.Error(t, err)
}
