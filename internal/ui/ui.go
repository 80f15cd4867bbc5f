package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var writer io.Writer = os.Stderr

// SetWriter overrides the writer used by Warn and Error (for testing). Nil
// restores stderr.
func SetWriter(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	writer = w
}

var colorEnabled = detectColor(os.Stdout)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func detectColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(f)
}

// SetColorEnabled overrides colour detection (for testing).
func SetColorEnabled(enabled bool) { colorEnabled = enabled }

// ColorEnabled reports whether styled output is used.
func ColorEnabled() bool { return colorEnabled }

var (
	boldStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ED8936")).Bold(true)
)

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// Bold renders s in bold.
func Bold(s string) string { return render(boldStyle, s) }

// Dim renders s faint.
func Dim(s string) string { return render(dimStyle, s) }

// Green renders s green.
func Green(s string) string { return render(greenStyle, s) }

// Red renders s red.
func Red(s string) string { return render(redStyle, s) }

// Yellow renders s yellow.
func Yellow(s string) string { return render(yellowStyle, s) }

// Accent renders s in the brand colour.
func Accent(s string) string { return render(accentStyle, s) }

// Warn prints a user-facing warning.
func Warn(msg string) {
	fmt.Fprintf(writer, "%s %s\n", Yellow("Warning:"), msg)
}

// Warnf prints a formatted user-facing warning.
func Warnf(format string, args ...any) {
	Warn(fmt.Sprintf(format, args...))
}

// Error prints a user-facing error.
func Error(msg string) {
	fmt.Fprintf(writer, "%s %s\n", Red("Error:"), msg)
}
