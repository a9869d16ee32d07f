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

type ledgerState interface {
	Account(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, account *types.Account) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Ledger keeps every balance in two spaces. Reward-included holders own a
// share of the reflected supply and their token balance is that share divided
// by the current rate; reward-excluded holders additionally carry an explicit
// token balance which is authoritative for them. Reflecting a fee shrinks the
// reflected supply, raising the token value of every included share at once.
type Ledger struct {
	state    ledgerState
	registry *exclusion.Registry
	self     common.Address
	emitter  events.Emitter
}

// NewLedger returns a ledger over st. self is the address credited with the
// liquidity portion of every transfer.
func NewLedger(st ledgerState, registry *exclusion.Registry, self common.Address) *Ledger {
	return &Ledger{state: st, registry: registry, self: self, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the sink for ledger events.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) ready() error {
	if l == nil || l.state == nil || l.registry == nil {
		return errNilState
	}
	return nil
}

// Mint initialises the supply and credits the whole reflected supply to owner.
func (l *Ledger) Mint(owner common.Address, total *uint256.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if ok, err := l.state.KVGet(supplyKey, nil); err != nil {
		return err
	} else if ok {
		return ErrAlreadyMinted
	}
	reflected, err := InitialReflected(total)
	if err != nil {
		return err
	}
	supply := Supply{Token: cloneAmount(total), Reflected: reflected, Fees: new(uint256.Int)}
	if err := l.putSupply(supply); err != nil {
		return err
	}
	account, err := l.state.Account(owner)
	if err != nil {
		return err
	}
	account.Reflected = new(uint256.Int).Set(reflected)
	if account.Excluded() {
		account.Token = cloneAmount(total)
	}
	return l.state.PutAccount(owner, account)
}

// Minted reports whether Mint has run.
func (l *Ledger) Minted() (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}
	return l.state.KVGet(supplyKey, nil)
}

// Supply returns a copy of the global totals.
func (l *Ledger) Supply() (Supply, error) {
	if err := l.ready(); err != nil {
		return Supply{}, err
	}
	return l.loadSupply()
}

// Rate returns the current reflected-per-token rate over the supply held by
// reward-included accounts.
func (l *Ledger) Rate() (*uint256.Int, error) {
	supply, err := l.Supply()
	if err != nil {
		return nil, err
	}
	return l.currentRate(supply)
}

// BalanceOf returns the token-space balance of addr.
func (l *Ledger) BalanceOf(addr common.Address) (*uint256.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	account, err := l.state.Account(addr)
	if err != nil {
		return nil, err
	}
	if account.Excluded() {
		return new(uint256.Int).Set(account.Token), nil
	}
	return l.TokenFromReflection(account.Reflected)
}

// ReflectedBalanceOf returns the raw reflected share of addr.
func (l *Ledger) ReflectedBalanceOf(addr common.Address) (*uint256.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	account, err := l.state.Account(addr)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(account.Reflected), nil
}

// TokenFromReflection converts a reflected amount to token space at the
// current rate.
func (l *Ledger) TokenFromReflection(rAmount *uint256.Int) (*uint256.Int, error) {
	supply, err := l.Supply()
	if err != nil {
		return nil, err
	}
	if rAmount.Gt(supply.Reflected) {
		return nil, ErrAmountExceedsReflections
	}
	rate, err := l.currentRate(supply)
	if err != nil {
		return nil, err
	}
	if rate.IsZero() {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Div(rAmount, rate), nil
}

// ReflectionFromToken converts a token amount to reflected space at the
// current rate. With deductTransferFee the net reflected amount after the
// supplied profile is returned instead of the gross one.
func (l *Ledger) ReflectionFromToken(tAmount *uint256.Int, deductTransferFee bool, profile fees.Profile) (*uint256.Int, error) {
	supply, err := l.Supply()
	if err != nil {
		return nil, err
	}
	if tAmount.Gt(supply.Token) {
		return nil, ErrAmountExceedsSupply
	}
	rate, err := l.currentRate(supply)
	if err != nil {
		return nil, err
	}
	values, err := fees.Compute(fees.Input{
		Amount:  tAmount,
		Rate:    rate,
		Profile: profile,
		TakeFee: deductTransferFee,
	})
	if err != nil {
		return nil, err
	}
	if !deductTransferFee {
		return values.ReflectedAmount, nil
	}
	return values.ReflectedTransferAmount, nil
}

// ReflectFee removes rFee from the reflected supply and records tFee as
// distributed.
func (l *Ledger) ReflectFee(rFee, tFee *uint256.Int) error {
	supply, err := l.Supply()
	if err != nil {
		return err
	}
	if err := l.reflect(&supply, rFee, tFee); err != nil {
		return err
	}
	return l.putSupply(supply)
}

func (l *Ledger) reflect(supply *Supply, rFee, tFee *uint256.Int) error {
	if rFee.Gt(supply.Reflected) {
		return fmt.Errorf("%w: rFee %s rTotal %s", ErrSupplyExceeded, rFee.Dec(), supply.Reflected.Dec())
	}
	total, overflow := new(uint256.Int).AddOverflow(supply.Fees, tFee)
	if overflow {
		return ErrOverflow
	}
	supply.Reflected = new(uint256.Int).Sub(supply.Reflected, rFee)
	supply.Fees = total
	l.emitter.Emit(events.ReflectFee{
		ReflectedFee:   cloneAmount(rFee),
		TokenFee:       cloneAmount(tFee),
		ReflectedTotal: cloneAmount(supply.Reflected),
		FeeTotal:       cloneAmount(supply.Fees),
	})
	return nil
}
