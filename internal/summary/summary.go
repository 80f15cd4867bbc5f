package summary

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/autonomys/pulsar/internal/paths"
	"github.com/pelletier/go-toml/v2"
)

// ErrNotFound is returned by Open when no summary exists and none should be
// created.
var ErrNotFound = errors.New("summary file not found")

// Summary is the content of summary.toml.
type Summary struct {
	InitialPlottingFinished bool    `toml:"initial_plotting_finished" json:"initial_plotting_finished"`
	AuthoredCount           uint64  `toml:"authored_count" json:"authored_count"`
	VoteCount               uint64  `toml:"vote_count" json:"vote_count"`
	TotalRewards            Rewards `toml:"total_rewards" json:"total_rewards"`
	UserSpacePledged        uint64  `toml:"user_space_pledged" json:"user_space_pledged"`
	LastProcessedBlockNum   uint32  `toml:"last_processed_block_num" json:"last_processed_block_num"`
}

// UpdateFields describes a change to the summary. Counters are added,
// PlottingFinished only ever sets the flag, and UserSpacePledged replaces the
// stored size when set.
type UpdateFields struct {
	PlottingFinished bool
	NewAuthoredCount uint64
	NewVoteCount     uint64
	NewReward        Rewards
	NewParsedBlocks  uint32
	UserSpacePledged *uint64
}

// File is a summary.toml on disk. Updates through one File are serialized.
type File struct {
	path string
	mu   sync.Mutex
}

// Path returns the default summary location.
func Path() (string, error) { return paths.SummaryPath() }

// Open opens the summary at path. When pledged is non-nil a missing file is
// created and an existing one gets its pledged size replaced; when pledged
// is nil the file must already exist.
func Open(path string, pledged *uint64) (*File, error) {
	f := &File{path: path}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if pledged == nil {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		if err := paths.EnsureDir(filepath.Dir(path), paths.DirPermNormal); err != nil {
			return nil, err
		}
		if err := f.write(&Summary{UserSpacePledged: *pledged}); err != nil {
			return nil, err
		}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("opening summary: %w", err)
	}

	if pledged != nil {
		if _, err := f.Update(UpdateFields{UserSpacePledged: pledged}); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Parse reads the current summary.
func (f *File) Parse() (*Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Read(f.path)
}

// Update applies u and writes the whole file back. It returns the new
// summary.
func (f *File) Update(u UpdateFields) (*Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := Read(f.path)
	if err != nil {
		return nil, err
	}
	if u.PlottingFinished {
		s.InitialPlottingFinished = true
	}
	s.AuthoredCount += u.NewAuthoredCount
	s.VoteCount += u.NewVoteCount
	s.TotalRewards = s.TotalRewards.Add(u.NewReward)
	s.LastProcessedBlockNum += u.NewParsedBlocks
	if u.UserSpacePledged != nil {
		s.UserSpacePledged = *u.UserSpacePledged
	}

	if err := f.write(s); err != nil {
		return nil, err
	}
	return s, nil
}

// write replaces the file atomically so readers never see a partial file.
func (f *File) write(s *Summary) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing summary: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".summary-*.toml")
	if err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing summary: %w", err)
	}
	return nil
}

// Read parses the summary at path without locking.
func Read(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s Summary
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary %s: %w", path, err)
	}
	return &s, nil
}

// Delete removes the summary at path. A missing file is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting summary: %w", err)
	}
	return nil
}
