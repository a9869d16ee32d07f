package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/types"
)

// ErrInsufficientBase is returned when a base-currency debit exceeds the
// holder's balance.
var ErrInsufficientBase = errors.New("state: insufficient base currency balance")

type storedAccount struct {
	Mode      uint8
	Reflected *uint256.Int
	Token     *uint256.Int
}

// Account loads the ledger record for addr. Unknown addresses yield an empty
// reward-included account; accounts are created implicitly on first reference.
func (m *Manager) Account(addr common.Address) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, fmt.Errorf("state: load account %s: %w", addr.Hex(), err)
	}
	if !ok {
		return types.NewAccount(), nil
	}
	account := &types.Account{
		Mode:      types.RewardMode(stored.Mode),
		Reflected: stored.Reflected,
		Token:     stored.Token,
	}
	account.EnsureDefaults()
	return account, nil
}

// PutAccount persists the ledger record for addr.
func (m *Manager) PutAccount(addr common.Address, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	account.EnsureDefaults()
	stored := storedAccount{
		Mode:      uint8(account.Mode),
		Reflected: new(uint256.Int).Set(account.Reflected),
		Token:     new(uint256.Int).Set(account.Token),
	}
	return m.KVPut(accountKey(addr), &stored)
}

// BaseBalance returns the base-currency (native coin) balance held by addr.
func (m *Manager) BaseBalance(addr common.Address) (*uint256.Int, error) {
	balance := new(uint256.Int)
	if _, err := m.KVGet(baseBalanceKey(addr), balance); err != nil {
		return nil, fmt.Errorf("state: load base balance %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

// SetBaseBalance overwrites the base-currency balance held by addr.
func (m *Manager) SetBaseBalance(addr common.Address, amount *uint256.Int) error {
	if amount == nil {
		amount = new(uint256.Int)
	}
	return m.KVPut(baseBalanceKey(addr), amount)
}

// TransferBase moves base currency between two holders.
func (m *Manager) TransferBase(from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromBalance, err := m.BaseBalance(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBase, fromBalance, amount)
	}
	if from == to {
		return nil
	}
	toBalance, err := m.BaseBalance(to)
	if err != nil {
		return err
	}
	if err := m.SetBaseBalance(from, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.SetBaseBalance(to, new(uint256.Int).Add(toBalance, amount))
}
