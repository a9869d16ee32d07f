package fees

import (
	"fmt"

	"github.com/holiman/uint256"

	nativecommon "reflexledger/native/common"
)

// ErrArithmeticOverflow is returned when a product leaves the 256-bit range.
var ErrArithmeticOverflow = fmt.Errorf("%w: fees: arithmetic overflow", nativecommon.ErrInvariantViolation)

// Input captures what is needed to split a transfer amount.
type Input struct {
	Amount  *uint256.Int
	Rate    *uint256.Int
	Profile Profile
	// TakeFee false forces a zero fee regardless of Profile.
	TakeFee bool
}

// Values is the split of a transfer in both token and reflected space.
type Values struct {
	TokenAmount         *uint256.Int
	TokenFee            *uint256.Int
	TokenLiquidity      *uint256.Int
	TokenTransferAmount *uint256.Int

	ReflectedAmount         *uint256.Int
	ReflectedFee            *uint256.Int
	ReflectedLiquidity      *uint256.Int
	ReflectedTransferAmount *uint256.Int
}

// Compute splits the transfer amount into fee, liquidity and net parts and
// scales each by the supplied rate. Compute is pure; callers capture the rate
// once before mutating any balance.
func Compute(in Input) (Values, error) {
	amount := uint256.NewInt(0)
	if in.Amount != nil {
		amount.Set(in.Amount)
	}
	rate := uint256.NewInt(0)
	if in.Rate != nil {
		rate.Set(in.Rate)
	}
	profile := in.Profile
	if !in.TakeFee {
		profile = Profile{}
	}
	if err := profile.Validate(); err != nil {
		return Values{}, err
	}

	tFee, err := percentOf(amount, profile.Tax)
	if err != nil {
		return Values{}, err
	}
	tLiquidity, err := percentOf(amount, profile.Liquidity)
	if err != nil {
		return Values{}, err
	}
	tTransfer := new(uint256.Int).Sub(amount, tFee)
	tTransfer.Sub(tTransfer, tLiquidity)

	rAmount, err := mul(amount, rate)
	if err != nil {
		return Values{}, err
	}
	rFee, err := mul(tFee, rate)
	if err != nil {
		return Values{}, err
	}
	rLiquidity, err := mul(tLiquidity, rate)
	if err != nil {
		return Values{}, err
	}
	rTransfer := new(uint256.Int).Sub(rAmount, rFee)
	rTransfer.Sub(rTransfer, rLiquidity)

	return Values{
		TokenAmount:             amount,
		TokenFee:                tFee,
		TokenLiquidity:          tLiquidity,
		TokenTransferAmount:     tTransfer,
		ReflectedAmount:         rAmount,
		ReflectedFee:            rFee,
		ReflectedLiquidity:      rLiquidity,
		ReflectedTransferAmount: rTransfer,
	}, nil
}

func percentOf(amount *uint256.Int, percent uint64) (*uint256.Int, error) {
	if percent == 0 || amount.IsZero() {
		return new(uint256.Int), nil
	}
	out, err := mul(amount, uint256.NewInt(percent))
	if err != nil {
		return nil, err
	}
	return out.Div(out, uint256.NewInt(MaxPercent)), nil
}

func mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, a.Dec(), b.Dec())
	}
	return out, nil
}
