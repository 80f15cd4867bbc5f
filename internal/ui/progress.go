package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

const (
	barWidth = 40
	// Without a terminal a line is printed every this many percent.
	plainStep = 5.0
)

// ProgressLine renders a single progress bar that is redrawn in place on a
// terminal and printed as sparse plain lines otherwise.
type ProgressLine struct {
	out         io.Writer
	label       string
	interactive bool
	bar         progress.Model

	mu        sync.Mutex
	lastPrint float64
	printed   bool
	done      bool
}

// NewProgressLine creates a bar writing to out. interactive selects in-place
// redraws.
func NewProgressLine(out io.Writer, label string, interactive bool) *ProgressLine {
	opts := []progress.Option{progress.WithWidth(barWidth)}
	if colorEnabled {
		opts = append(opts, progress.WithGradient("#ED8936", "#F6E05E"))
	} else {
		opts = append(opts, progress.WithoutPercentage(), progress.WithFillCharacters('#', '-'))
	}
	return &ProgressLine{
		out:         out,
		label:       label,
		interactive: interactive,
		bar:         progress.New(opts...),
		lastPrint:   -plainStep,
	}
}

// Render returns the bar line for fraction in [0,1] without printing it.
func (p *ProgressLine) Render(fraction float64, detail string) string {
	fraction = clamp(fraction)
	var b strings.Builder
	b.WriteString(p.label)
	b.WriteString(" ")
	b.WriteString(p.bar.ViewAs(fraction))
	if !colorEnabled {
		fmt.Fprintf(&b, " %5.1f%%", fraction*100)
	}
	if detail != "" {
		b.WriteString(" ")
		b.WriteString(detail)
	}
	return b.String()
}

// Update draws the bar for fraction in [0,1].
func (p *ProgressLine) Update(fraction float64, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	fraction = clamp(fraction)
	line := p.Render(fraction, detail)

	if p.interactive {
		fmt.Fprintf(p.out, "\r\033[2K%s", line)
		p.printed = true
		return
	}
	if fraction*100-p.lastPrint >= plainStep || (fraction == 1 && p.lastPrint < 100) {
		fmt.Fprintln(p.out, line)
		p.lastPrint = fraction * 100
	}
}

// Done draws the final state followed by msg on its own line. Further
// updates are ignored.
func (p *ProgressLine) Done(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	if p.interactive && p.printed {
		fmt.Fprintln(p.out)
	}
	if msg != "" {
		fmt.Fprintln(p.out, msg)
	}
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
