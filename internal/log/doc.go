// Package log builds the zap logger shared by every command. Human readable
// entries go to stderr, structured JSON entries go to a daily-rotated file in
// the log directory.
package log
