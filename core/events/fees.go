package events

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/types"
)

const (
	// TypeReflectFee marks a reduction of the reflected supply.
	TypeReflectFee = "reflection.fee"
	// TypeTakeLiquidity marks the liquidity portion credited to the token itself.
	TypeTakeLiquidity = "reflection.liquidity"
	// TypeDeliver marks a holder donating tokens to every reward-included holder.
	TypeDeliver = "reflection.deliver"
	// TypeFeePercents is emitted when a fee profile changes.
	TypeFeePercents = "fees.percents"
	// TypeMaxTxPercent is emitted when the per-transfer limit changes.
	TypeMaxTxPercent = "fees.maxTx"
)

// ReflectFee carries the fee reflected by a transfer and the resulting totals.
type ReflectFee struct {
	ReflectedFee   *uint256.Int
	TokenFee       *uint256.Int
	ReflectedTotal *uint256.Int
	FeeTotal       *uint256.Int
}

func (ReflectFee) EventType() string { return TypeReflectFee }

func (e ReflectFee) Event() *types.Event {
	return &types.Event{Type: TypeReflectFee, Attributes: map[string]string{
		"rFee":      formatAmount(e.ReflectedFee),
		"tFee":      formatAmount(e.TokenFee),
		"rTotal":    formatAmount(e.ReflectedTotal),
		"tFeeTotal": formatAmount(e.FeeTotal),
	}}
}

// TakeLiquidity carries the liquidity portion and the token's own balances
// after it was credited.
type TakeLiquidity struct {
	ReflectedLiquidity *uint256.Int
	TokenLiquidity     *uint256.Int
	Reflected          *uint256.Int
	Token              *uint256.Int
}

func (TakeLiquidity) EventType() string { return TypeTakeLiquidity }

func (e TakeLiquidity) Event() *types.Event {
	return &types.Event{Type: TypeTakeLiquidity, Attributes: map[string]string{
		"rLiquidity": formatAmount(e.ReflectedLiquidity),
		"tLiquidity": formatAmount(e.TokenLiquidity),
		"reflected":  formatAmount(e.Reflected),
		"token":      formatAmount(e.Token),
	}}
}

type Deliver struct {
	Sender          common.Address
	Amount          *uint256.Int
	ReflectedAmount *uint256.Int
	ReflectedSender *uint256.Int
	ReflectedTotal  *uint256.Int
	FeeTotal        *uint256.Int
}

func (Deliver) EventType() string { return TypeDeliver }

func (e Deliver) Event() *types.Event {
	return &types.Event{Type: TypeDeliver, Attributes: map[string]string{
		"sender":          formatAddress(e.Sender),
		"amount":          formatAmount(e.Amount),
		"rAmount":         formatAmount(e.ReflectedAmount),
		"reflectedSender": formatAmount(e.ReflectedSender),
		"rTotal":          formatAmount(e.ReflectedTotal),
		"tFeeTotal":       formatAmount(e.FeeTotal),
	}}
}

// FeePercents reports the new values of a named fee profile.
type FeePercents struct {
	Profile   string
	Liquidity uint64
	Tax       uint64
}

func (FeePercents) EventType() string { return TypeFeePercents }

func (e FeePercents) Event() *types.Event {
	return &types.Event{Type: TypeFeePercents, Attributes: map[string]string{
		"profile":      e.Profile,
		"liquidityFee": strconv.FormatUint(e.Liquidity, 10),
		"taxFee":       strconv.FormatUint(e.Tax, 10),
	}}
}

type MaxTxPercent struct {
	Percent     uint64
	MaxTxAmount *uint256.Int
}

func (MaxTxPercent) EventType() string { return TypeMaxTxPercent }

func (e MaxTxPercent) Event() *types.Event {
	return &types.Event{Type: TypeMaxTxPercent, Attributes: map[string]string{
		"percent":     strconv.FormatUint(e.Percent, 10),
		"maxTxAmount": formatAmount(e.MaxTxAmount),
	}}
}
