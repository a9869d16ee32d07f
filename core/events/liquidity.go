package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/types"
)

const (
	TypeThreshold             = "liquidity.threshold"
	TypeSwapAndLiquifyEnabled = "liquidity.enabled"
	TypeSwapAndLiquify        = "liquidity.swapAndLiquify"
	TypeRouterChanged         = "liquidity.router"
)

type Threshold struct {
	Threshold *uint256.Int
}

func (Threshold) EventType() string { return TypeThreshold }

func (e Threshold) Event() *types.Event {
	return &types.Event{Type: TypeThreshold, Attributes: map[string]string{
		"threshold": formatAmount(e.Threshold),
	}}
}

type SwapAndLiquifyEnabled struct {
	Enabled bool
}

func (SwapAndLiquifyEnabled) EventType() string { return TypeSwapAndLiquifyEnabled }

func (e SwapAndLiquifyEnabled) Event() *types.Event {
	return &types.Event{Type: TypeSwapAndLiquifyEnabled, Attributes: map[string]string{
		"enabled": formatBool(e.Enabled),
	}}
}

// SwapAndLiquify summarises one run of the liquidity workflow.
type SwapAndLiquify struct {
	TokensSwapped       *uint256.Int
	BaseReceived        *uint256.Int
	TokensIntoLiquidity *uint256.Int
	LiquidityMinted     *uint256.Int
	LiquidityRecipient  common.Address
}

func (SwapAndLiquify) EventType() string { return TypeSwapAndLiquify }

func (e SwapAndLiquify) Event() *types.Event {
	return &types.Event{Type: TypeSwapAndLiquify, Attributes: map[string]string{
		"tokensSwapped":       formatAmount(e.TokensSwapped),
		"baseReceived":        formatAmount(e.BaseReceived),
		"tokensIntoLiquidity": formatAmount(e.TokensIntoLiquidity),
		"liquidityMinted":     formatAmount(e.LiquidityMinted),
		"liquidityRecipient":  formatAddress(e.LiquidityRecipient),
	}}
}

type RouterChanged struct {
	Router common.Address
	Pair   common.Address
}

func (RouterChanged) EventType() string { return TypeRouterChanged }

func (e RouterChanged) Event() *types.Event {
	return &types.Event{Type: TypeRouterChanged, Attributes: map[string]string{
		"router": formatAddress(e.Router),
		"pair":   formatAddress(e.Pair),
	}}
}
