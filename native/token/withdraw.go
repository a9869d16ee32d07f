package token

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/events"
)

// Asset is another token that may end up held by the token contract.
type Asset interface {
	Address() common.Address
	BalanceOf(ctx context.Context, addr common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
}

// RegisterAsset makes asset withdrawable through WithdrawAlienToken.
func (t *Token) RegisterAsset(asset Asset) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assets[asset.Address()] = asset
}

// WithdrawAlienToken sends amount of the token at asset, held by the token
// contract, to recipient. The contract's own balance may only be withdrawn
// while swap and liquify is disabled.
func (t *Token) WithdrawAlienToken(ctx context.Context, caller, asset, recipient common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if recipient == (common.Address{}) {
		return ErrZeroRecipient
	}
	return t.ownerOp(ctx, "withdrawAlienToken", caller, func(ctx context.Context) error {
		if asset == t.address {
			if err := t.withdrawOwn(ctx, recipient, amount); err != nil {
				return err
			}
		} else if err := t.withdrawAsset(ctx, asset, recipient, amount); err != nil {
			return err
		}
		t.pending.Emit(events.WithdrawAlienToken{
			Token:     asset,
			Recipient: recipient,
			Amount:    new(uint256.Int).Set(amount),
		})
		return nil
	})
}

func (t *Token) withdrawOwn(ctx context.Context, recipient common.Address, amount *uint256.Int) error {
	s, err := t.loadSettings()
	if err != nil {
		return err
	}
	if s.Enabled {
		return ErrOwnTokenWithdrawal
	}
	balance, err := t.ledger.BalanceOf(t.address)
	if err != nil {
		return err
	}
	if amount.Gt(balance) {
		return fmt.Errorf("%w: have %s want %s", ErrInsufficientAssetBalance, balance.Dec(), amount.Dec())
	}
	return t.transfer(ctx, t.address, recipient, amount)
}

func (t *Token) withdrawAsset(ctx context.Context, address, recipient common.Address, amount *uint256.Int) error {
	asset, ok := t.assets[address]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, address.Hex())
	}
	balance, err := asset.BalanceOf(ctx, t.address)
	if err != nil {
		return err
	}
	if amount.Gt(balance) {
		return fmt.Errorf("%w: have %s want %s", ErrInsufficientAssetBalance, balance.Dec(), amount.Dec())
	}
	return asset.Transfer(ctx, t.address, recipient, amount)
}

// WithdrawLeftovers sends all base currency held by the token contract, the
// remainder of past liquidity additions, to the owner.
func (t *Token) WithdrawLeftovers(ctx context.Context, caller common.Address) error {
	return t.ownerOp(ctx, "withdrawLeftovers", caller, func(context.Context) error {
		amount, err := t.state.BaseBalance(t.address)
		if err != nil {
			return err
		}
		if err := t.state.TransferBase(t.address, caller, amount); err != nil {
			return err
		}
		t.pending.Emit(events.WithdrawLeftovers{Recipient: caller, Amount: new(uint256.Int).Set(amount)})
		return nil
	})
}
