// Package ui holds the terminal presentation helpers: colour detection,
// lipgloss styles, single-line progress bars, line prompts used by init, and
// the interactive command picker shown when pulsar runs without a command.
package ui
