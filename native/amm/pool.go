package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "reflexledger/native/common"
)

// MinimumLiquidity is the share amount locked forever on the first deposit.
const MinimumLiquidity = 1000

const (
	feeNumerator   = 997
	feeDenominator = 1000
)

var (
	ErrInsufficientInput     = fmt.Errorf("%w: amm: insufficient input amount", nativecommon.ErrInvariantViolation)
	ErrInsufficientOutput    = fmt.Errorf("%w: amm: insufficient output amount", nativecommon.ErrInvariantViolation)
	ErrInsufficientLiquidity = fmt.Errorf("%w: amm: insufficient liquidity", nativecommon.ErrStateConflict)
	ErrInsufficientMinted    = fmt.Errorf("%w: amm: insufficient liquidity minted", nativecommon.ErrInvariantViolation)
	ErrSlippage              = fmt.Errorf("%w: amm: amount below minimum", nativecommon.ErrInvariantViolation)
	ErrOverflow              = fmt.Errorf("%w: amm: arithmetic overflow", nativecommon.ErrInvariantViolation)
)

// Reserves are the pool balances the price is computed from.
type Reserves struct {
	Token *uint256.Int
	Base  *uint256.Int
}

func (r Reserves) copy() Reserves {
	return Reserves{Token: clone(r.Token), Base: clone(r.Base)}
}

func clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

func mulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, c), nil
}

// AmountOut prices a swap of amountIn against the reserves with the 0.3% fee.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInsufficientInput
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	inWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(feeNumerator))
	if overflow {
		return nil, ErrOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(inWithFee, reserveOut)
	if overflow {
		return nil, ErrOverflow
	}
	denominator, overflow := new(uint256.Int).MulOverflow(reserveIn, uint256.NewInt(feeDenominator))
	if overflow {
		return nil, ErrOverflow
	}
	denominator.Add(denominator, inWithFee)
	return numerator.Div(numerator, denominator), nil
}

// Quote returns the amount of the other asset matching amountA at the
// current price.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || amountA.IsZero() {
		return nil, ErrInsufficientInput
	}
	return mulDiv(amountA, reserveB, reserveA)
}

// optimalAmounts returns how much of each desired amount a deposit uses so
// the pool price is unchanged.
func optimalAmounts(reserves Reserves, tokenDesired, baseDesired, tokenMin, baseMin *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if reserves.Token.IsZero() && reserves.Base.IsZero() {
		return clone(tokenDesired), clone(baseDesired), nil
	}
	baseOptimal, err := Quote(tokenDesired, reserves.Token, reserves.Base)
	if err != nil {
		return nil, nil, err
	}
	if !baseOptimal.Gt(baseDesired) {
		if baseOptimal.Lt(baseMin) {
			return nil, nil, fmt.Errorf("%w: base", ErrSlippage)
		}
		return clone(tokenDesired), baseOptimal, nil
	}
	tokenOptimal, err := Quote(baseDesired, reserves.Base, reserves.Token)
	if err != nil {
		return nil, nil, err
	}
	if tokenOptimal.Lt(tokenMin) {
		return nil, nil, fmt.Errorf("%w: token", ErrSlippage)
	}
	return tokenOptimal, clone(baseDesired), nil
}

// liquidityFor returns the shares minted for a deposit against reserves
// holding totalShares.
func liquidityFor(reserves Reserves, totalShares, tokenIn, baseIn *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		product, overflow := new(uint256.Int).MulOverflow(tokenIn, baseIn)
		if overflow {
			return nil, ErrOverflow
		}
		root := new(uint256.Int).Sqrt(product)
		minimum := uint256.NewInt(MinimumLiquidity)
		if !root.Gt(minimum) {
			return nil, ErrInsufficientMinted
		}
		return root.Sub(root, minimum), nil
	}
	byToken, err := mulDiv(tokenIn, totalShares, reserves.Token)
	if err != nil {
		return nil, err
	}
	byBase, err := mulDiv(baseIn, totalShares, reserves.Base)
	if err != nil {
		return nil, err
	}
	if byBase.Lt(byToken) {
		byToken = byBase
	}
	if byToken.IsZero() {
		return nil, ErrInsufficientMinted
	}
	return byToken, nil
}

// pairAddress derives the pool account for token under router.
func pairAddress(router, token common.Address) common.Address {
	return common.BytesToAddress(hashKey([]byte("amm/pair"), router.Bytes(), token.Bytes()))
}
