package liquidity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AddLiquidityResult reports what the pool accepted.
type AddLiquidityResult struct {
	UsedToken *uint256.Int
	UsedBase  *uint256.Int
	Liquidity *uint256.Int
}

// Router is the AMM capability the workflow depends on. Both calls are atomic:
// they either complete fully or return an error having moved nothing.
type Router interface {
	// Address is the router's own account, used as the token spender.
	Address() common.Address
	// WrappedBase is the token standing in for the base currency in swap paths.
	WrappedBase() common.Address
	// PairFor returns (creating if needed) the pool pairing token with the
	// base currency.
	PairFor(token common.Address) (common.Address, error)
	// SwapExactTokensForBase sells amountIn of path[0] held by from and pays
	// the base currency received to recipient.
	SwapExactTokensForBase(ctx context.Context, from common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, recipient common.Address, deadline time.Time) (*uint256.Int, error)
	// AddLiquidity deposits token and base currency held by from and mints
	// pool shares to recipient.
	AddLiquidity(ctx context.Context, from, token common.Address, tokenAmount, baseAmount, minToken, minBase *uint256.Int, recipient common.Address, deadline time.Time) (AddLiquidityResult, error)
}

// BaseLedger reads base-currency balances.
type BaseLedger interface {
	BaseBalance(addr common.Address) (*uint256.Int, error)
}
