package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/autonomys/pulsar/internal/paths"
	"github.com/autonomys/pulsar/internal/platform"
)

// Update is a partial change to the settings. Nil fields are left alone.
type Update struct {
	Chain         *string
	FarmSize      *string
	RewardAddress *string
	NodeDirectory *string
	FarmDirectory *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Chain == nil && u.FarmSize == nil && u.RewardAddress == nil &&
		u.NodeDirectory == nil && u.FarmDirectory == nil
}

// Apply validates every field of u and applies it to cfg. Directory changes
// move the existing data to the new location. Nothing is moved unless every
// field is valid, and cfg is left untouched on error; when the farm cannot be
// moved, a node directory already moved is moved back.
func Apply(cfg *Config, u Update) error {
	next := *cfg
	if u.Chain != nil {
		c, err := ParseChain(*u.Chain)
		if err != nil {
			return err
		}
		next.Chain = c
	}
	if u.FarmSize != nil {
		n, err := ParseSize(*u.FarmSize)
		if err != nil {
			return err
		}
		next.Farmer.FarmSize = FormatSize(n)
	}
	if u.RewardAddress != nil {
		if _, err := ParseRewardAddress(*u.RewardAddress); err != nil {
			return err
		}
		next.Farmer.RewardAddress = strings.TrimSpace(*u.RewardAddress)
	}
	if u.NodeDirectory != nil {
		dir, err := ParseDirectory(*u.NodeDirectory)
		if err != nil {
			return err
		}
		next.Node.Directory = dir
	}
	if u.FarmDirectory != nil {
		dir, err := ParseDirectory(*u.FarmDirectory)
		if err != nil {
			return err
		}
		next.Farmer.FarmDirectory = dir
	}

	var nodeMoved []string
	if u.NodeDirectory != nil {
		moved, err := moveDir(cfg.Node.Directory, next.Node.Directory)
		if err != nil {
			return undoMove(fmt.Errorf("moving node directory: %w", err),
				move{moved, next.Node.Directory, cfg.Node.Directory})
		}
		nodeMoved = moved
	}
	if u.FarmDirectory != nil {
		moved, err := moveDir(cfg.Farmer.FarmDirectory, next.Farmer.FarmDirectory)
		if err != nil {
			return undoMove(fmt.Errorf("moving farm directory: %w", err),
				move{moved, next.Farmer.FarmDirectory, cfg.Farmer.FarmDirectory},
				move{nodeMoved, next.Node.Directory, cfg.Node.Directory})
		}
	}

	*cfg = next
	return nil
}

// MoveDir creates dst and moves every entry of src into it. A missing src is
// not an error. Moving a directory onto itself is a no-op. Entries are moved
// across filesystems by copying.
func MoveDir(src, dst string) error {
	_, err := moveDir(src, dst)
	return err
}

// moveDir is MoveDir returning the names of the entries it moved, also when
// it stops early.
func moveDir(src, dst string) ([]string, error) {
	if err := paths.EnsureDir(dst, paths.DirPermNormal); err != nil {
		return nil, err
	}
	if src == "" || filepath.Clean(src) == filepath.Clean(dst) {
		return nil, nil
	}

	entries, err := os.ReadDir(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	var moved []string
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		if _, err := os.Lstat(to); err == nil {
			return moved, fmt.Errorf("%s already exists", to)
		}
		if err := platform.Move(from, to); err != nil {
			return moved, err
		}
		moved = append(moved, e.Name())
	}
	return moved, nil
}

// move records entries moved from one directory to another.
type move struct {
	names    []string
	from, to string
}

// undoMove puts moved entries back where they were and returns err, with
// any rollback failure attached.
func undoMove(err error, moves ...move) error {
	for _, m := range moves {
		for _, name := range m.names {
			if rbErr := platform.Move(filepath.Join(m.from, name), filepath.Join(m.to, name)); rbErr != nil {
				return fmt.Errorf("%w; restoring %s also failed: %v", err, filepath.Join(m.to, name), rbErr)
			}
		}
	}
	return err
}
