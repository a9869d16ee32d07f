package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "reflexledger/native/common"
	"reflexledger/native/liquidity"
)

var (
	ErrExpired      = fmt.Errorf("%w: amm: deadline expired", nativecommon.ErrInvariantViolation)
	ErrInvalidPath  = fmt.Errorf("%w: amm: invalid swap path", nativecommon.ErrInvariantViolation)
	ErrUnknownToken = fmt.Errorf("%w: amm: token not registered", nativecommon.ErrStateConflict)
	ErrUnknownPair  = fmt.Errorf("%w: amm: pair not created", nativecommon.ErrStateConflict)

	errNilState = errors.New("amm: state not configured")
)

// Token is the view of a token the router trades. Transfer moves amount from
// from to to as if from had authorised the router to do so.
type Token interface {
	Address() common.Address
	BalanceOf(ctx context.Context, addr common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
}

// Router is a constant-product pool router pairing registered tokens with the
// base currency. Reserves and pool shares live in the same journaled state as
// the tokens, so a failed outer operation rolls the pool back with them.
type Router struct {
	address common.Address
	wrapped common.Address
	state   ammState
	tokens  map[common.Address]Token
	now     func() time.Time

	// FailSwap and FailAddLiquidity, when set, are returned by the next
	// matching call before anything moves.
	FailSwap         error
	FailAddLiquidity error
	// OnSwap runs inside SwapExactTokensForBase after the input tokens
	// arrived and before the output is paid.
	OnSwap func(ctx context.Context) error
}

var _ liquidity.Router = (*Router)(nil)

// NewRouter returns a router at address whose base-currency stand-in is
// wrapped.
func NewRouter(address, wrapped common.Address, st ammState) *Router {
	return &Router{
		address: address,
		wrapped: wrapped,
		state:   st,
		tokens:  make(map[common.Address]Token),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for deadlines.
func (r *Router) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// RegisterToken makes tok tradeable.
func (r *Router) RegisterToken(tok Token) {
	r.tokens[tok.Address()] = tok
}

func (r *Router) Address() common.Address { return r.address }
func (r *Router) WrappedBase() common.Address { return r.wrapped }

// PairFor returns the pool for token, creating an empty one on first use.
func (r *Router) PairFor(token common.Address) (common.Address, error) {
	if r.state == nil {
		return common.Address{}, errNilState
	}
	pair := pairAddress(r.address, token)
	if _, ok, err := r.loadReserves(pair); err != nil {
		return common.Address{}, err
	} else if !ok {
		if err := r.putReserves(pair, Reserves{}); err != nil {
			return common.Address{}, err
		}
	}
	return pair, nil
}

func (r *Router) lookup(token common.Address) (Token, common.Address, Reserves, error) {
	if r.state == nil {
		return nil, common.Address{}, Reserves{}, errNilState
	}
	tok, ok := r.tokens[token]
	if !ok {
		return nil, common.Address{}, Reserves{}, fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	pair := pairAddress(r.address, token)
	reserves, ok, err := r.loadReserves(pair)
	if err != nil {
		return nil, common.Address{}, Reserves{}, err
	}
	if !ok {
		return nil, common.Address{}, Reserves{}, fmt.Errorf("%w: %s", ErrUnknownPair, token.Hex())
	}
	return tok, pair, reserves, nil
}

func (r *Router) checkDeadline(deadline time.Time) error {
	if !deadline.IsZero() && r.now().After(deadline) {
		return ErrExpired
	}
	return nil
}

// atomic runs fn so that a failure leaves no trace in state.
func (r *Router) atomic(fn func() error) error {
	snap := r.state.Snapshot()
	if err := fn(); err != nil {
		if revertErr := r.state.RevertToSnapshot(snap); revertErr != nil {
			return errors.Join(err, revertErr)
		}
		return err
	}
	r.state.DiscardSnapshot(snap)
	return nil
}

// deposit moves amount of tok from from into pair and returns how much of it
// the pool actually gained. Transfers may re-enter the router (a token that
// converts fees into liquidity does so from inside its transfer), so the
// reserve growth those nested calls already booked is excluded.
func (r *Router) deposit(ctx context.Context, tok Token, pair, from common.Address, amount *uint256.Int) (*uint256.Int, Reserves, error) {
	before, err := tok.BalanceOf(ctx, pair)
	if err != nil {
		return nil, Reserves{}, err
	}
	booked, _, err := r.loadReserves(pair)
	if err != nil {
		return nil, Reserves{}, err
	}
	if err := tok.Transfer(ctx, from, pair, amount); err != nil {
		return nil, Reserves{}, err
	}
	after, err := tok.BalanceOf(ctx, pair)
	if err != nil {
		return nil, Reserves{}, err
	}
	reserves, _, err := r.loadReserves(pair)
	if err != nil {
		return nil, Reserves{}, err
	}
	received := new(uint256.Int)
	if after.Gt(before) {
		received.Sub(after, before)
	}
	nested := new(uint256.Int)
	if reserves.Token.Gt(booked.Token) {
		nested.Sub(reserves.Token, booked.Token)
	}
	if received.Gt(nested) {
		received.Sub(received, nested)
	} else {
		received.Clear()
	}
	return received, reserves, nil
}

// SwapExactTokensForBase sells amountIn of path[0] held by from for base
// currency paid to recipient.
func (r *Router) SwapExactTokensForBase(ctx context.Context, from common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, recipient common.Address, deadline time.Time) (*uint256.Int, error) {
	if r.FailSwap != nil {
		return nil, r.FailSwap
	}
	if err := r.checkDeadline(deadline); err != nil {
		return nil, err
	}
	if len(path) != 2 || path[1] != r.wrapped {
		return nil, ErrInvalidPath
	}
	tok, pair, _, err := r.lookup(path[0])
	if err != nil {
		return nil, err
	}
	var out *uint256.Int
	err = r.atomic(func() error {
		var err error
		out, err = r.sellTokens(ctx, tok, pair, from, amountIn, amountOutMin, recipient)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Router) sellTokens(ctx context.Context, tok Token, pair, from common.Address, amountIn, amountOutMin *uint256.Int, recipient common.Address) (*uint256.Int, error) {
	received, reserves, err := r.deposit(ctx, tok, pair, from, amountIn)
	if err != nil {
		return nil, err
	}
	if r.OnSwap != nil {
		if err := r.OnSwap(ctx); err != nil {
			return nil, err
		}
		if reserves, _, err = r.loadReserves(pair); err != nil {
			return nil, err
		}
	}
	out, err := AmountOut(received, reserves.Token, reserves.Base)
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, ErrInsufficientOutput
	}
	if amountOutMin != nil && out.Lt(amountOutMin) {
		return nil, fmt.Errorf("%w: out %s", ErrSlippage, out.Dec())
	}
	if err := r.state.TransferBase(pair, recipient, out); err != nil {
		return nil, err
	}
	reserves.Token = new(uint256.Int).Add(reserves.Token, received)
	reserves.Base = new(uint256.Int).Sub(reserves.Base, out)
	if err := r.putReserves(pair, reserves); err != nil {
		return nil, err
	}
	return out, nil
}

// SwapExactBaseForTokens buys token with baseIn held by from and delivers the
// output to recipient.
func (r *Router) SwapExactBaseForTokens(ctx context.Context, from common.Address, baseIn, amountOutMin *uint256.Int, token, recipient common.Address, deadline time.Time) (*uint256.Int, error) {
	if r.FailSwap != nil {
		return nil, r.FailSwap
	}
	if err := r.checkDeadline(deadline); err != nil {
		return nil, err
	}
	tok, pair, reserves, err := r.lookup(token)
	if err != nil {
		return nil, err
	}
	var out *uint256.Int
	err = r.atomic(func() error {
		var err error
		out, err = r.buyTokens(ctx, tok, pair, reserves, from, baseIn, amountOutMin, recipient)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Router) buyTokens(ctx context.Context, tok Token, pair common.Address, reserves Reserves, from common.Address, baseIn, amountOutMin *uint256.Int, recipient common.Address) (*uint256.Int, error) {
	out, err := AmountOut(baseIn, reserves.Base, reserves.Token)
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, ErrInsufficientOutput
	}
	if amountOutMin != nil && out.Lt(amountOutMin) {
		return nil, fmt.Errorf("%w: out %s", ErrSlippage, out.Dec())
	}
	if err := r.state.TransferBase(from, pair, baseIn); err != nil {
		return nil, err
	}
	reserves.Base = new(uint256.Int).Add(reserves.Base, baseIn)
	reserves.Token = new(uint256.Int).Sub(reserves.Token, out)
	if err := r.putReserves(pair, reserves); err != nil {
		return nil, err
	}
	if err := tok.Transfer(ctx, pair, recipient, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddLiquidity deposits token and base currency held by from at the pool
// price and mints shares to recipient.
func (r *Router) AddLiquidity(ctx context.Context, from, token common.Address, tokenAmount, baseAmount, minToken, minBase *uint256.Int, recipient common.Address, deadline time.Time) (liquidity.AddLiquidityResult, error) {
	if r.FailAddLiquidity != nil {
		return liquidity.AddLiquidityResult{}, r.FailAddLiquidity
	}
	if err := r.checkDeadline(deadline); err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	tok, pair, reserves, err := r.lookup(token)
	if err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	var result liquidity.AddLiquidityResult
	err = r.atomic(func() error {
		var err error
		result, err = r.addLiquidity(ctx, tok, pair, reserves, from, tokenAmount, baseAmount, minToken, minBase, recipient)
		return err
	})
	if err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	return result, nil
}

func (r *Router) addLiquidity(ctx context.Context, tok Token, pair common.Address, reserves Reserves, from common.Address, tokenAmount, baseAmount, minToken, minBase *uint256.Int, recipient common.Address) (liquidity.AddLiquidityResult, error) {
	usedToken, usedBase, err := optimalAmounts(reserves, clone(tokenAmount), clone(baseAmount), clone(minToken), clone(minBase))
	if err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	if usedToken.IsZero() || usedBase.IsZero() {
		return liquidity.AddLiquidityResult{}, ErrInsufficientInput
	}
	received, reserves, err := r.deposit(ctx, tok, pair, from, usedToken)
	if err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	if err := r.state.TransferBase(from, pair, usedBase); err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	total, err := r.loadAmount(totalSharesKey(pair))
	if err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	minted, err := liquidityFor(reserves, total, received, usedBase)
	if err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	if total.IsZero() {
		if err := r.mintShares(pair, common.Address{}, uint256.NewInt(MinimumLiquidity)); err != nil {
			return liquidity.AddLiquidityResult{}, err
		}
	}
	if err := r.mintShares(pair, recipient, minted); err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	reserves.Token = new(uint256.Int).Add(reserves.Token, received)
	reserves.Base = new(uint256.Int).Add(reserves.Base, usedBase)
	if err := r.putReserves(pair, reserves); err != nil {
		return liquidity.AddLiquidityResult{}, err
	}
	return liquidity.AddLiquidityResult{UsedToken: usedToken, UsedBase: usedBase, Liquidity: minted}, nil
}

func (r *Router) mintShares(pair, holder common.Address, amount *uint256.Int) error {
	balance, err := r.loadAmount(sharesKey(pair, holder))
	if err != nil {
		return err
	}
	total, err := r.loadAmount(totalSharesKey(pair))
	if err != nil {
		return err
	}
	if err := r.state.KVPut(sharesKey(pair, holder), new(uint256.Int).Add(balance, amount)); err != nil {
		return err
	}
	return r.state.KVPut(totalSharesKey(pair), new(uint256.Int).Add(total, amount))
}

// Reserves returns the pool reserves for token.
func (r *Router) Reserves(token common.Address) (Reserves, error) {
	if r.state == nil {
		return Reserves{}, errNilState
	}
	reserves, ok, err := r.loadReserves(pairAddress(r.address, token))
	if err != nil {
		return Reserves{}, err
	}
	if !ok {
		return Reserves{}, fmt.Errorf("%w: %s", ErrUnknownPair, token.Hex())
	}
	return reserves, nil
}

// SharesOf returns the pool shares of holder in the pool for token.
func (r *Router) SharesOf(token, holder common.Address) (*uint256.Int, error) {
	if r.state == nil {
		return nil, errNilState
	}
	return r.loadAmount(sharesKey(pairAddress(r.address, token), holder))
}

// TotalShares returns the share supply of the pool for token.
func (r *Router) TotalShares(token common.Address) (*uint256.Int, error) {
	if r.state == nil {
		return nil, errNilState
	}
	return r.loadAmount(totalSharesKey(pairAddress(r.address, token)))
}
