package reflection

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/events"
	"reflexledger/core/types"
	"reflexledger/native/exclusion"
	"reflexledger/native/fees"
)

// TransferCase names which representation is authoritative on each side.
type TransferCase string

const (
	CaseStandard     TransferCase = "standard"
	CaseFromExcluded TransferCase = "from_excluded"
	CaseToExcluded   TransferCase = "to_excluded"
	CaseBothExcluded TransferCase = "both_excluded"
)

func caseFor(sender, recipient *types.Account) TransferCase {
	switch {
	case sender.Excluded() && !recipient.Excluded():
		return CaseFromExcluded
	case !sender.Excluded() && recipient.Excluded():
		return CaseToExcluded
	case sender.Excluded() && recipient.Excluded():
		return CaseBothExcluded
	default:
		return CaseStandard
	}
}

// ApplyTransfer moves values from sender to recipient, credits the liquidity
// portion to the ledger's own address and reflects the fee portion. values
// must have been computed at the current rate.
func (l *Ledger) ApplyTransfer(sender, recipient common.Address, values fees.Values) (TransferCase, error) {
	if err := l.ready(); err != nil {
		return "", err
	}
	supply, err := l.loadSupply()
	if err != nil {
		return "", err
	}

	from, err := l.state.Account(sender)
	if err != nil {
		return "", err
	}
	if from.Reflected.Lt(values.ReflectedAmount) {
		return "", fmt.Errorf("%w: %s", ErrInsufficientBalance, sender.Hex())
	}
	if from.Excluded() && from.Token.Lt(values.TokenAmount) {
		return "", fmt.Errorf("%w: %s", ErrInsufficientBalance, sender.Hex())
	}
	to, err := l.state.Account(recipient)
	if err != nil {
		return "", err
	}
	kind := caseFor(from, to)

	from.Reflected = new(uint256.Int).Sub(from.Reflected, values.ReflectedAmount)
	if from.Excluded() {
		from.Token = new(uint256.Int).Sub(from.Token, values.TokenAmount)
	}
	if err := l.state.PutAccount(sender, from); err != nil {
		return "", err
	}
	// Reload so a self-transfer sees the debit.
	to, err = l.state.Account(recipient)
	if err != nil {
		return "", err
	}
	if err := credit(to, values.ReflectedTransferAmount, values.TokenTransferAmount); err != nil {
		return "", err
	}
	if err := l.state.PutAccount(recipient, to); err != nil {
		return "", err
	}
	if sender == recipient {
		from = to
	}
	l.emitTransferCase(kind, sender, recipient, from, to, values)

	if err := l.takeLiquidity(values.ReflectedLiquidity, values.TokenLiquidity); err != nil {
		return "", err
	}
	if err := l.reflect(&supply, values.ReflectedFee, values.TokenFee); err != nil {
		return "", err
	}
	if err := l.putSupply(supply); err != nil {
		return "", err
	}
	return kind, nil
}

func credit(account *types.Account, reflected, token *uint256.Int) error {
	r, overflow := new(uint256.Int).AddOverflow(account.Reflected, reflected)
	if overflow {
		return ErrOverflow
	}
	account.Reflected = r
	if account.Excluded() {
		t, overflow := new(uint256.Int).AddOverflow(account.Token, token)
		if overflow {
			return ErrOverflow
		}
		account.Token = t
	}
	return nil
}

func (l *Ledger) emitTransferCase(kind TransferCase, sender, recipient common.Address, from, to *types.Account, values fees.Values) {
	switch kind {
	case CaseStandard:
		l.emitter.Emit(events.TransferStandard{
			Sender:             sender,
			Recipient:          recipient,
			ReflectedSender:    cloneAmount(from.Reflected),
			ReflectedRecipient: cloneAmount(to.Reflected),
		})
	case CaseFromExcluded:
		l.emitter.Emit(events.TransferFromExcluded{
			Sender:             sender,
			Recipient:          recipient,
			TokenSender:        cloneAmount(from.Token),
			ReflectedSender:    cloneAmount(from.Reflected),
			ReflectedRecipient: cloneAmount(to.Reflected),
		})
	case CaseToExcluded:
		l.emitter.Emit(events.TransferToExcluded{
			Sender:             sender,
			Recipient:          recipient,
			ReflectedSender:    cloneAmount(from.Reflected),
			TokenRecipient:     cloneAmount(to.Token),
			ReflectedRecipient: cloneAmount(to.Reflected),
		})
	case CaseBothExcluded:
		l.emitter.Emit(events.TransferFromSender{
			Sender:    sender,
			Token:     cloneAmount(from.Token),
			Reflected: cloneAmount(from.Reflected),
		})
		l.emitter.Emit(events.TransferToRecipient{
			Recipient: recipient,
			Token:     cloneAmount(to.Token),
			Reflected: cloneAmount(to.Reflected),
		})
	}
}

func (l *Ledger) takeLiquidity(rLiquidity, tLiquidity *uint256.Int) error {
	account, err := l.state.Account(l.self)
	if err != nil {
		return err
	}
	if err := credit(account, rLiquidity, tLiquidity); err != nil {
		return err
	}
	if err := l.state.PutAccount(l.self, account); err != nil {
		return err
	}
	l.emitter.Emit(events.TakeLiquidity{
		ReflectedLiquidity: cloneAmount(rLiquidity),
		TokenLiquidity:     cloneAmount(tLiquidity),
		Reflected:          cloneAmount(account.Reflected),
		Token:              cloneAmount(account.Token),
	})
	return nil
}

// Deliver burns tAmount worth of sender's reflected share, distributing it to
// every reward-included holder.
func (l *Ledger) Deliver(sender common.Address, tAmount *uint256.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	account, err := l.state.Account(sender)
	if err != nil {
		return err
	}
	if account.Excluded() {
		return fmt.Errorf("%w: %s", ErrExcludedCallerRejected, sender.Hex())
	}
	supply, err := l.loadSupply()
	if err != nil {
		return err
	}
	if tAmount.Gt(supply.Token) {
		return ErrAmountExceedsSupply
	}
	rate, err := l.currentRate(supply)
	if err != nil {
		return err
	}
	values, err := fees.Compute(fees.Input{Amount: tAmount, Rate: rate})
	if err != nil {
		return err
	}
	rAmount := values.ReflectedAmount
	if account.Reflected.Lt(rAmount) {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, sender.Hex())
	}
	account.Reflected = new(uint256.Int).Sub(account.Reflected, rAmount)
	if err := l.state.PutAccount(sender, account); err != nil {
		return err
	}
	if err := l.reflect(&supply, rAmount, tAmount); err != nil {
		return err
	}
	if err := l.putSupply(supply); err != nil {
		return err
	}
	l.emitter.Emit(events.Deliver{
		Sender:          sender,
		Amount:          cloneAmount(tAmount),
		ReflectedAmount: cloneAmount(rAmount),
		ReflectedSender: cloneAmount(account.Reflected),
		ReflectedTotal:  cloneAmount(supply.Reflected),
		FeeTotal:        cloneAmount(supply.Fees),
	})
	return nil
}

// ExcludeFromReward switches addr to an explicit token balance equal to its
// current reflected share at the current rate.
func (l *Ledger) ExcludeFromReward(addr common.Address) error {
	if err := l.ready(); err != nil {
		return err
	}
	account, err := l.state.Account(addr)
	if err != nil {
		return err
	}
	if account.Excluded() {
		return fmt.Errorf("%w: %s", exclusion.ErrAlreadyExcluded, addr.Hex())
	}
	token := new(uint256.Int)
	if !account.Reflected.IsZero() {
		token, err = l.TokenFromReflection(account.Reflected)
		if err != nil {
			return err
		}
	}
	account.Mode = types.RewardExcluded
	account.Token = token
	if err := l.state.PutAccount(addr, account); err != nil {
		return err
	}
	if err := l.registry.AddRewardExcluded(addr); err != nil {
		return err
	}
	l.emitter.Emit(events.RewardExclusion{Account: addr, Excluded: true, Token: cloneAmount(token)})
	return nil
}

// IncludeInReward drops the explicit balance of addr and reprices its
// reflected share at the current rate so the token balance carries over. The
// reflected total absorbs the difference from the share kept while excluded.
func (l *Ledger) IncludeInReward(addr common.Address) error {
	if err := l.ready(); err != nil {
		return err
	}
	account, err := l.state.Account(addr)
	if err != nil {
		return err
	}
	if !account.Excluded() {
		return fmt.Errorf("%w: %s", exclusion.ErrNotExcluded, addr.Hex())
	}
	supply, err := l.loadSupply()
	if err != nil {
		return err
	}
	rate, err := l.currentRate(supply)
	if err != nil {
		return err
	}
	reflected, overflow := new(uint256.Int).MulOverflow(account.Token, rate)
	if overflow {
		return ErrOverflow
	}
	if account.Reflected.Gt(supply.Reflected) {
		return fmt.Errorf("%w: %s holds more than the reflected total", ErrSupplyExceeded, addr.Hex())
	}
	total := new(uint256.Int).Sub(supply.Reflected, account.Reflected)
	if _, overflow := total.AddOverflow(total, reflected); overflow {
		return ErrOverflow
	}
	supply.Reflected = total

	discarded := cloneAmount(account.Token)
	account.Mode = types.RewardIncluded
	account.Reflected = reflected
	account.Token = new(uint256.Int)
	if err := l.state.PutAccount(addr, account); err != nil {
		return err
	}
	if err := l.putSupply(supply); err != nil {
		return err
	}
	if err := l.registry.RemoveRewardExcluded(addr); err != nil {
		return err
	}
	l.emitter.Emit(events.RewardExclusion{Account: addr, Excluded: false, Token: discarded})
	return nil
}

// IsExcludedFromReward reports whether addr holds an explicit token balance.
func (l *Ledger) IsExcludedFromReward(addr common.Address) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}
	account, err := l.state.Account(addr)
	if err != nil {
		return false, err
	}
	return account.Excluded(), nil
}
