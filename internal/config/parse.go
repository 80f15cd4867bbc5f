package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/autonomys/pulsar/internal/ss58"
	"github.com/dustin/go-humanize"
)

// Known chains.
const (
	ChainGemini3h = "gemini-3h"
	ChainDevnet   = "devnet"
	ChainDev      = "dev"
)

// MinFarmSize is the smallest farm the farmer accepts.
const MinFarmSize uint64 = 2 * humanize.GByte

// Chains lists the chains the node can join, in the order init offers them.
var Chains = []string{ChainGemini3h, ChainDevnet, ChainDev}

// ParseRewardAddress decodes an SS58 reward address.
func ParseRewardAddress(s string) (ss58.PublicKey, error) {
	key, _, err := ss58.Decode(strings.TrimSpace(s))
	if err != nil {
		return key, fmt.Errorf("invalid reward address %q: %w", s, err)
	}
	return key, nil
}

// ParseNodeName accepts a non-empty ASCII name without surrounding spaces.
func ParseNodeName(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", errors.New("node name cannot be empty")
	}
	if strings.TrimSpace(s) != s {
		return "", errors.New("node name cannot start or end with whitespace")
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return "", fmt.Errorf("node name %q must contain printable ASCII characters only", s)
		}
	}
	return s, nil
}

// ParseDirectory expands a leading "~" and makes the path absolute. The
// directory does not have to exist yet, but the path must not point to a
// regular file.
func ParseDirectory(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("directory cannot be empty")
	}
	if s == "~" || strings.HasPrefix(s, "~/") || strings.HasPrefix(s, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		s = filepath.Join(home, s[1:])
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", s, err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return "", fmt.Errorf("%s exists and is not a directory", abs)
	}
	return abs, nil
}

// ParseSize parses a human size such as "100 GB" or "1.5TiB" and enforces
// MinFarmSize.
func ParseSize(s string) (uint64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < MinFarmSize {
		return 0, fmt.Errorf("farm size must be at least %s, got %s", humanize.Bytes(MinFarmSize), humanize.Bytes(n))
	}
	return n, nil
}

// siUnits are the decimal units FormatSize may pick, largest first.
var siUnits = []struct {
	name string
	size uint64
}{
	{"EB", humanize.EByte},
	{"PB", humanize.PByte},
	{"TB", humanize.TByte},
	{"GB", humanize.GByte},
	{"MB", humanize.MByte},
	{"kB", humanize.KByte},
}

// FormatSize renders n so that ParseSize returns exactly n again. The
// rounded humanize form is used when it is exact, e.g. "100 GB"; otherwise
// the largest unit with an exact decimal, e.g. "1.25 TB", and plain bytes as
// a last resort.
func FormatSize(n uint64) string {
	exact := func(s string) bool {
		v, err := humanize.ParseBytes(s)
		return err == nil && v == n
	}
	for _, s := range []string{humanize.Bytes(n), humanize.IBytes(n)} {
		if exact(s) {
			return s
		}
	}
	for _, u := range siUnits {
		if n < u.size {
			continue
		}
		s := decimal(n, u.size) + " " + u.name
		if exact(s) {
			return s
		}
	}
	return strconv.FormatUint(n, 10) + " B"
}

// decimal writes n/unit without rounding; unit is a power of ten.
func decimal(n, unit uint64) string {
	whole := strconv.FormatUint(n/unit, 10)
	rem := n % unit
	if rem == 0 {
		return whole
	}
	digits := len(strconv.FormatUint(unit, 10)) - 1
	frac := strconv.FormatUint(rem, 10)
	frac = strings.Repeat("0", digits-len(frac)) + frac
	return whole + "." + strings.TrimRight(frac, "0")
}

// ParseChain accepts one of Chains, case-insensitively.
func ParseChain(s string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(s))
	for _, known := range Chains {
		if c == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown chain %q, expected one of: %s", s, strings.Join(Chains, ", "))
}

// ParseYesNo accepts y/yes/n/no in any case.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected yes or no, got %q", s)
	}
}

// ParseCachePercentage accepts an integer between 1 and 50.
func ParseCachePercentage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")))
	if err != nil {
		return 0, fmt.Errorf("invalid cache percentage %q: %w", s, err)
	}
	if n < 1 || n > 50 {
		return 0, fmt.Errorf("cache percentage must be between 1 and 50, got %d", n)
	}
	return n, nil
}
