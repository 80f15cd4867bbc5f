// Package summary persists farming statistics in summary.toml so the info
// command can report them while, or after, a farm runs.
package summary
