package token

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/events"
	"reflexledger/native/fees"
	"reflexledger/native/liquidity"
)

// ownerOp runs fn atomically after checking that caller owns the token.
func (t *Token) ownerOp(ctx context.Context, op string, caller common.Address, fn func(ctx context.Context) error) error {
	return t.atomically(ctx, op, func(ctx context.Context) error {
		if err := t.timelock.RequireOwner(caller); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (t *Token) updateSettings(fn func(*settings) error) error {
	s, err := t.loadSettings()
	if err != nil {
		return err
	}
	if err := fn(&s); err != nil {
		return err
	}
	return t.putSettings(s)
}

// SetTransferFeePercent replaces the wallet-to-wallet fee profile.
func (t *Token) SetTransferFeePercent(ctx context.Context, caller common.Address, liquidityPercent, taxPercent uint64) error {
	profile := fees.Profile{Liquidity: liquidityPercent, Tax: taxPercent}
	return t.ownerOp(ctx, "setTransferFeePercent", caller, func(context.Context) error {
		if err := profile.Validate(); err != nil {
			return err
		}
		if err := t.updateSettings(func(s *settings) error {
			s.TransferLiquidity, s.TransferTax = profile.Liquidity, profile.Tax
			return nil
		}); err != nil {
			return err
		}
		t.pending.Emit(events.FeePercents{Profile: "transfer", Liquidity: profile.Liquidity, Tax: profile.Tax})
		return nil
	})
}

// SetSwapFeePercent replaces the fee profile for transfers touching the pair.
func (t *Token) SetSwapFeePercent(ctx context.Context, caller common.Address, liquidityPercent, taxPercent uint64) error {
	profile := fees.Profile{Liquidity: liquidityPercent, Tax: taxPercent}
	return t.ownerOp(ctx, "setSwapFeePercent", caller, func(context.Context) error {
		if err := profile.Validate(); err != nil {
			return err
		}
		if err := t.updateSettings(func(s *settings) error {
			s.SwapLiquidity, s.SwapTax = profile.Liquidity, profile.Tax
			return nil
		}); err != nil {
			return err
		}
		t.pending.Emit(events.FeePercents{Profile: "swap", Liquidity: profile.Liquidity, Tax: profile.Tax})
		return nil
	})
}

// SetMaxTxPercent caps single transfers at percent of the total supply.
func (t *Token) SetMaxTxPercent(ctx context.Context, caller common.Address, percent uint64) error {
	return t.ownerOp(ctx, "setMaxTxPercent", caller, func(context.Context) error {
		supply, err := t.ledger.Supply()
		if err != nil {
			return err
		}
		amount, err := fees.MaxTxAmount(supply.Token, percent)
		if err != nil {
			return err
		}
		if err := t.updateSettings(func(s *settings) error {
			s.MaxTxPercent = percent
			s.MaxTxAmount = amount
			return nil
		}); err != nil {
			return err
		}
		t.pending.Emit(events.MaxTxPercent{Percent: percent, MaxTxAmount: new(uint256.Int).Set(amount)})
		return nil
	})
}

// SetThreshold sets the contract balance at which swap and liquify starts.
func (t *Token) SetThreshold(ctx context.Context, caller common.Address, threshold *uint256.Int) error {
	if threshold == nil {
		return ErrNilAmount
	}
	value := new(uint256.Int).Set(threshold)
	return t.ownerOp(ctx, "setThreshold", caller, func(context.Context) error {
		if err := t.updateSettings(func(s *settings) error {
			s.Threshold = value
			return nil
		}); err != nil {
			return err
		}
		t.pending.Emit(events.Threshold{Threshold: new(uint256.Int).Set(value)})
		return nil
	})
}

func (t *Token) SetSwapAndLiquifyEnabled(ctx context.Context, caller common.Address, enabled bool) error {
	return t.ownerOp(ctx, "setSwapAndLiquifyEnabled", caller, func(context.Context) error {
		if err := t.updateSettings(func(s *settings) error {
			s.Enabled = enabled
			return nil
		}); err != nil {
			return err
		}
		t.pending.Emit(events.SwapAndLiquifyEnabled{Enabled: enabled})
		return nil
	})
}

// SetRouter points the token at a new router and re-derives the pair from it.
func (t *Token) SetRouter(ctx context.Context, caller common.Address, router liquidity.Router) error {
	if router == nil || router.Address() == (common.Address{}) {
		return ErrZeroAddress
	}
	err := t.ownerOp(ctx, "setRouter", caller, func(context.Context) error {
		pair, err := router.PairFor(t.address)
		if err != nil {
			return err
		}
		if err := t.updateSettings(func(s *settings) error {
			s.Router = router.Address()
			s.Pair = pair
			return nil
		}); err != nil {
			return err
		}
		t.pending.Emit(events.RouterChanged{Router: router.Address(), Pair: pair})
		return nil
	})
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.liquidity.SetRouter(router)
	t.mu.Unlock()
	return nil
}

func (t *Token) ExcludeFromFee(ctx context.Context, caller, account common.Address) error {
	return t.setFeeExclusion(ctx, "excludeFromFee", caller, account, true)
}

func (t *Token) IncludeInFee(ctx context.Context, caller, account common.Address) error {
	return t.setFeeExclusion(ctx, "includeInFee", caller, account, false)
}

func (t *Token) setFeeExclusion(ctx context.Context, op string, caller, account common.Address, excluded bool) error {
	return t.ownerOp(ctx, op, caller, func(context.Context) error {
		if err := t.registry.SetExcludedFromFee(account, excluded); err != nil {
			return err
		}
		t.pending.Emit(events.FeeExclusion{Account: account, Excluded: excluded})
		return nil
	})
}

// ExcludeFromReward freezes account's balance so it stops receiving
// reflections.
func (t *Token) ExcludeFromReward(ctx context.Context, caller, account common.Address) error {
	return t.ownerOp(ctx, "excludeFromReward", caller, func(context.Context) error {
		return t.ledger.ExcludeFromReward(account)
	})
}

// IncludeInReward lets account receive reflections again.
func (t *Token) IncludeInReward(ctx context.Context, caller, account common.Address) error {
	return t.ownerOp(ctx, "includeInReward", caller, func(context.Context) error {
		return t.ledger.IncludeInReward(account)
	})
}

// Deliver gives up amount of caller's balance to every reward-included
// holder.
func (t *Token) Deliver(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	return t.atomically(ctx, "deliver", func(context.Context) error {
		return t.ledger.Deliver(caller, amount)
	})
}

func (t *Token) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	return t.atomically(ctx, "transferOwnership", func(context.Context) error {
		return t.timelock.TransferOwnership(caller, newOwner)
	})
}

func (t *Token) RenounceOwnership(ctx context.Context, caller common.Address) error {
	return t.atomically(ctx, "renounceOwnership", func(context.Context) error {
		return t.timelock.RenounceOwnership(caller)
	})
}

// Lock gives up ownership for duration; only caller may take it back.
func (t *Token) Lock(ctx context.Context, caller common.Address, duration time.Duration) error {
	return t.atomically(ctx, "lock", func(context.Context) error {
		return t.timelock.Lock(caller, duration)
	})
}

func (t *Token) Unlock(ctx context.Context, caller common.Address) error {
	return t.atomically(ctx, "unlock", func(context.Context) error {
		return t.timelock.Unlock(caller)
	})
}
