package token

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/events"
	"reflexledger/native/fees"
)

// Transfer moves amount from from to to. Fees are taken unless either side is
// excluded from fees or swap and liquify is running, and the transfer may
// start swap and liquify once the ledger has been updated. A failure at any
// step, including inside the router, leaves no trace.
func (t *Token) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	return t.atomically(ctx, "transfer", func(ctx context.Context) error {
		return t.transfer(ctx, from, to, amount)
	})
}

func (t *Token) transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	if from == (common.Address{}) {
		return ErrZeroSender
	}
	if to == (common.Address{}) {
		return ErrZeroRecipient
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	s, err := t.loadSettings()
	if err != nil {
		return err
	}
	owner, err := t.timelock.Owner()
	if err != nil {
		return err
	}
	if from != owner && to != owner && amount.Gt(s.MaxTxAmount) {
		return fmt.Errorf("%w: %s > %s", ErrExceedsMaxTx, amount.Dec(), s.MaxTxAmount.Dec())
	}

	takeFee, err := t.takesFee(from, to)
	if err != nil {
		return err
	}
	rate, err := t.ledger.Rate()
	if err != nil {
		return err
	}
	values, err := fees.Compute(fees.Input{
		Amount:  amount,
		Rate:    rate,
		Profile: s.schedule().Select(from, to, s.Pair, takeFee),
		TakeFee: takeFee,
	})
	if err != nil {
		return err
	}
	if _, err := t.ledger.ApplyTransfer(from, to, values); err != nil {
		return err
	}
	t.pending.Emit(events.Transfer{
		From:              from,
		To:                to,
		Value:             values.TokenTransferAmount,
		Gross:             values.TokenAmount,
		ReflectedAmount:   values.ReflectedAmount,
		ReflectedTransfer: values.ReflectedTransferAmount,
	})
	return t.maybeLiquify(ctx, s, from)
}

func (t *Token) takesFee(from, to common.Address) (bool, error) {
	if t.liquidity.InSwap() {
		return false, nil
	}
	for _, addr := range []common.Address{from, to} {
		excluded, err := t.registry.IsExcludedFromFee(addr)
		if err != nil {
			return false, err
		}
		if excluded {
			return false, nil
		}
	}
	return true, nil
}

// maybeLiquify runs swap and liquify over the token's own balance, capped at
// the max transaction amount, when the trigger conditions hold.
func (t *Token) maybeLiquify(ctx context.Context, s settings, sender common.Address) error {
	if t.liquidity.Router() == nil {
		return nil
	}
	balance, err := t.ledger.BalanceOf(t.address)
	if err != nil {
		return err
	}
	if balance.Gt(s.MaxTxAmount) {
		balance = new(uint256.Int).Set(s.MaxTxAmount)
	}
	if !t.liquidity.ShouldTrigger(s.liquidity(), balance, sender) {
		return nil
	}
	recipient, err := t.lpRecipient()
	if err != nil {
		return err
	}
	_, err = t.liquidity.Run(ctx, balance, recipient)
	return err
}

// lpRecipient is the owner, or the previous owner while ownership is locked.
func (t *Token) lpRecipient() (common.Address, error) {
	owner, err := t.timelock.Owner()
	if err != nil {
		return common.Address{}, err
	}
	if owner != (common.Address{}) {
		return owner, nil
	}
	return t.timelock.PreviousOwner()
}

// Tradeable returns the view of the token handed to an AMM router.
func (t *Token) Tradeable() *PoolView { return &PoolView{t: t} }

// PoolView adapts the token for routers, whose reads happen inside
// operations the token already runs.
type PoolView struct {
	t *Token
}

func (p *PoolView) Address() common.Address { return p.t.address }

func (p *PoolView) BalanceOf(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := p.t.view(ctx, func() (err error) {
		out, err = p.t.ledger.BalanceOf(addr)
		return err
	})
	return out, err
}

func (p *PoolView) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	return p.t.Transfer(ctx, from, to, amount)
}
