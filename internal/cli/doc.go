// Package cli defines the Cobra command tree for pulsar. Each file registers
// one top-level command (init, farm, wipe, info, ...) with the root command.
// Commands delegate to internal packages for the actual work and only handle
// flags, prompts and output formatting.
package cli
