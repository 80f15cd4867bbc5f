// Package config manages the farming settings stored in settings.toml under
// the user config directory. It loads and writes the file through viper,
// validates it against an embedded JSON Schema, and exposes the parsers used
// by the init prompts and the config command flags.
package config
