package summary

import (
	"fmt"
	"math/big"
)

// shannonsPerSSC is 10^18, the number of base units in one SSC.
var shannonsPerSSC = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Rewards is an amount of SSC in base units. The zero value is zero. It is
// stored as a decimal string because amounts exceed 64 bits.
type Rewards struct {
	v *big.Int
}

// NewRewards returns an amount of n base units.
func NewRewards(n uint64) Rewards {
	return Rewards{v: new(big.Int).SetUint64(n)}
}

// ParseRewards parses a decimal amount of base units.
func ParseRewards(s string) (Rewards, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return Rewards{}, fmt.Errorf("invalid rewards amount %q", s)
	}
	return Rewards{v: v}, nil
}

func (r Rewards) int() *big.Int {
	if r.v == nil {
		return new(big.Int)
	}
	return r.v
}

// Add returns r+o.
func (r Rewards) Add(o Rewards) Rewards {
	return Rewards{v: new(big.Int).Add(r.int(), o.int())}
}

// IsZero reports whether the amount is zero.
func (r Rewards) IsZero() bool { return r.int().Sign() == 0 }

// String returns the amount in base units.
func (r Rewards) String() string { return r.int().String() }

// AsSSC converts the amount to SSC by dividing by 10^18.
func (r Rewards) AsSSC() float64 {
	f, _ := new(big.Rat).SetFrac(r.int(), shannonsPerSSC).Float64()
	return f
}

// MarshalText implements encoding.TextMarshaler.
func (r Rewards) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rewards) UnmarshalText(text []byte) error {
	parsed, err := ParseRewards(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
