package farmer

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/autonomys/pulsar/internal/process"
)

var (
	progressPattern = regexp.MustCompile(`Plotting sector.*\((\d+(?:\.\d+)?)% complete\)`)
	finishedPattern = regexp.MustCompile(`(?i)initial plotting complete`)
	ansiPattern     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// PlottingProgress is the last known state of the initial plotting.
type PlottingProgress struct {
	Percent  float64
	Finished bool
}

// ParseLine extracts plotting progress from one farmer log line.
func ParseLine(line string) (PlottingProgress, bool) {
	line = ansiPattern.ReplaceAllString(line, "")
	if finishedPattern.MatchString(line) {
		return PlottingProgress{Percent: 100, Finished: true}, true
	}
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return PlottingProgress{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return PlottingProgress{}, false
	}
	if pct > 100 {
		pct = 100
	}
	return PlottingProgress{Percent: pct}, true
}

// PlottingTracker turns farmer output into plotting progress. Updates
// signals that Progress changed; Finished is closed once initial plotting is
// done.
type PlottingTracker struct {
	mu       sync.Mutex
	progress PlottingProgress

	updates    chan struct{}
	finished   chan struct{}
	finishOnce sync.Once
}

// NewPlottingTracker returns an empty tracker.
func NewPlottingTracker() *PlottingTracker {
	return &PlottingTracker{
		updates:  make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
}

// HandleLine is a process.LineHandler.
func (t *PlottingTracker) HandleLine(_ process.Stream, line string) {
	if !strings.Contains(line, "lotting") {
		return
	}
	p, ok := ParseLine(line)
	if !ok {
		return
	}
	t.set(p)
}

// MarkFinished records that initial plotting already completed, e.g. on a
// restart with full plots.
func (t *PlottingTracker) MarkFinished() {
	t.set(PlottingProgress{Percent: 100, Finished: true})
}

func (t *PlottingTracker) set(p PlottingProgress) {
	t.mu.Lock()
	if t.progress.Finished {
		t.mu.Unlock()
		return
	}
	// Progress of a single farm never goes backwards.
	if !p.Finished && p.Percent < t.progress.Percent {
		p.Percent = t.progress.Percent
	}
	t.progress = p
	t.mu.Unlock()

	select {
	case t.updates <- struct{}{}:
	default:
	}
	if p.Finished {
		t.finishOnce.Do(func() { close(t.finished) })
	}
}

// Progress returns the latest plotting state.
func (t *PlottingTracker) Progress() PlottingProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Updates receives a value whenever Progress changed.
func (t *PlottingTracker) Updates() <-chan struct{} { return t.updates }

// Finished is closed when initial plotting is complete.
func (t *PlottingTracker) Finished() <-chan struct{} { return t.finished }
