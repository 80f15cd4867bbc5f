package log

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/autonomys/pulsar/internal/platform"
)

// LatestLink is the name of the symlink to the active log file.
const LatestLink = "latest"

const (
	dateLayout    = "2006-01-02"
	fileExt       = ".jsonl"
	unrotatedName = "pulsar" + fileExt
)

// FileWriter appends log entries to dir/YYYY-MM-DD.jsonl, switching files
// when the date changes. With rotation disabled it always writes to
// dir/pulsar.jsonl.
type FileWriter struct {
	dir      string
	rotate   bool
	now      func() time.Time
	mu       sync.Mutex
	file     *os.File
	currDate string
}

// NewFileWriter opens the current log file in dir.
func NewFileWriter(dir string, rotate bool) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	fw := &FileWriter{dir: dir, rotate: rotate, now: time.Now}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.openLocked(); err != nil {
		return nil, err
	}
	return fw, nil
}

// Write implements io.Writer.
func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.rotate && fw.now().Format(dateLayout) != fw.currDate {
		if err := fw.openLocked(); err != nil {
			return 0, err
		}
	}
	if fw.file == nil {
		return 0, os.ErrClosed
	}
	return fw.file.Write(p)
}

// Sync flushes the current file.
func (fw *FileWriter) Sync() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file == nil {
		return nil
	}
	return fw.file.Sync()
}

// Close closes the current file.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file == nil {
		return nil
	}
	err := fw.file.Close()
	fw.file = nil
	return err
}

// Path returns the file currently written to.
func (fw *FileWriter) Path() string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file == nil {
		return ""
	}
	return fw.file.Name()
}

func (fw *FileWriter) openLocked() error {
	if fw.file != nil {
		fw.file.Close()
	}

	name := unrotatedName
	if fw.rotate {
		fw.currDate = fw.now().Format(dateLayout)
		name = fw.currDate + fileExt
	}

	f, err := os.OpenFile(filepath.Join(fw.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	fw.file = f
	fw.updateLatest(name)
	return nil
}

// updateLatest points dir/latest at the active file. Failures are ignored.
func (fw *FileWriter) updateLatest(target string) {
	link := filepath.Join(fw.dir, LatestLink)
	_ = platform.RemoveSymlink(link)
	_ = platform.CreateSymlink(target, link)
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.jsonl$`)

// Cleanup removes dated log files older than retentionDays and returns how
// many were deleted.
func Cleanup(dir string, retentionDays int) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !datePattern.MatchString(name) {
			continue
		}
		fileDate, err := time.Parse(dateLayout, name[:len(dateLayout)])
		if err != nil {
			continue
		}
		if fileDate.Before(cutoff) {
			if os.Remove(filepath.Join(dir, name)) == nil {
				removed++
			}
		}
	}
	return removed
}
