package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "reflexledger/native/common"
)

// MaxPercent is the upper bound for every fee field and for their sum.
const MaxPercent = 100

var (
	// ErrFeeTooHigh is returned when a profile field or the profile total
	// exceeds MaxPercent.
	ErrFeeTooHigh = fmt.Errorf("%w: fees: fee percent too high", nativecommon.ErrInvariantViolation)
	// ErrLimitTooHigh is returned when the max transaction percent exceeds 100.
	ErrLimitTooHigh = fmt.Errorf("%w: fees: max transaction percent too high", nativecommon.ErrInvariantViolation)
)

// Profile is a pair of whole-number percentages applied to a transfer amount.
type Profile struct {
	Liquidity uint64 `toml:"liquidity" yaml:"liquidity"`
	Tax       uint64 `toml:"tax" yaml:"tax"`
}

// Validate rejects profiles whose fields or total exceed 100%.
func (p Profile) Validate() error {
	if p.Liquidity > MaxPercent || p.Tax > MaxPercent {
		return fmt.Errorf("%w: liquidity=%d tax=%d", ErrFeeTooHigh, p.Liquidity, p.Tax)
	}
	if p.Liquidity+p.Tax > MaxPercent {
		return fmt.Errorf("%w: total %d", ErrFeeTooHigh, p.Liquidity+p.Tax)
	}
	return nil
}

// Total returns the combined percentage.
func (p Profile) Total() uint64 { return p.Liquidity + p.Tax }

// Schedule holds the two profiles a token switches between.
type Schedule struct {
	Transfer Profile `toml:"transfer" yaml:"transfer"`
	Swap     Profile `toml:"swap" yaml:"swap"`
}

// DefaultSchedule returns 2% liquidity on plain transfers and 5% liquidity on
// transfers touching the liquidity pair.
func DefaultSchedule() Schedule {
	return Schedule{
		Transfer: Profile{Liquidity: 2},
		Swap:     Profile{Liquidity: 5},
	}
}

// Validate checks both profiles.
func (s Schedule) Validate() error {
	if err := s.Transfer.Validate(); err != nil {
		return fmt.Errorf("transfer profile: %w", err)
	}
	if err := s.Swap.Validate(); err != nil {
		return fmt.Errorf("swap profile: %w", err)
	}
	return nil
}

// Select returns the profile governing a transfer between sender and
// recipient. Transfers touching pair use the swap profile. When takeFee is
// false the zero profile is returned.
func (s Schedule) Select(sender, recipient, pair common.Address, takeFee bool) Profile {
	if !takeFee {
		return Profile{}
	}
	if pair != (common.Address{}) && (sender == pair || recipient == pair) {
		return s.Swap
	}
	return s.Transfer
}

// MaxTxAmount returns total·percent/100.
func MaxTxAmount(total *uint256.Int, percent uint64) (*uint256.Int, error) {
	if percent > MaxPercent {
		return nil, fmt.Errorf("%w: %d", ErrLimitTooHigh, percent)
	}
	if total == nil {
		return new(uint256.Int), nil
	}
	amount, overflow := new(uint256.Int).MulOverflow(total, uint256.NewInt(percent))
	if overflow {
		return nil, fmt.Errorf("%w: max transaction amount", ErrArithmeticOverflow)
	}
	return amount.Div(amount, uint256.NewInt(MaxPercent)), nil
}
