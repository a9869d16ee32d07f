package reflection

import (
	"fmt"

	"github.com/holiman/uint256"
)

var supplyKey = []byte("reflection/supply")

// Supply holds the global totals of the ledger.
type Supply struct {
	// Token is tTotal, fixed at mint.
	Token *uint256.Int
	// Reflected is rTotal. Reflecting fees shrinks it; it equals the sum of
	// every account's reflected share.
	Reflected *uint256.Int
	// Fees is tFeeTotal, the cumulative token-space fee reflected to holders.
	Fees *uint256.Int
}

// Rate returns Reflected / Token, the rate before reward-excluded holdings
// are taken out. Ledger.Rate is the one balances are priced at.
func (s Supply) Rate() *uint256.Int {
	if s.Token == nil || s.Token.IsZero() {
		return new(uint256.Int)
	}
	return new(uint256.Int).Div(s.Reflected, s.Token)
}

// Copy returns a deep copy.
func (s Supply) Copy() Supply {
	return Supply{
		Token:     cloneAmount(s.Token),
		Reflected: cloneAmount(s.Reflected),
		Fees:      cloneAmount(s.Fees),
	}
}

// InitialReflected returns MAX - (MAX mod total), the largest multiple of
// total representable in 256 bits.
func InitialReflected(total *uint256.Int) (*uint256.Int, error) {
	if total == nil || total.IsZero() {
		return nil, ErrZeroSupply
	}
	limit := new(uint256.Int).SetAllOne()
	rem := new(uint256.Int).Mod(limit, total)
	return limit.Sub(limit, rem), nil
}

// CurrentSupply returns the reflected and token supply held by
// reward-included accounts.
func (l *Ledger) CurrentSupply() (*uint256.Int, *uint256.Int, error) {
	supply, err := l.Supply()
	if err != nil {
		return nil, nil, err
	}
	return l.currentSupply(supply)
}

// currentSupply subtracts every reward-excluded balance from the totals. The
// totals are returned unchanged when an excluded balance exceeds what is left
// or the remaining reflected supply drops below the total rate.
func (l *Ledger) currentSupply(s Supply) (*uint256.Int, *uint256.Int, error) {
	excluded, err := l.registry.RewardExcluded()
	if err != nil {
		return nil, nil, err
	}
	rSupply := cloneAmount(s.Reflected)
	tSupply := cloneAmount(s.Token)
	for _, addr := range excluded {
		account, err := l.state.Account(addr)
		if err != nil {
			return nil, nil, err
		}
		if account.Reflected.Gt(rSupply) || account.Token.Gt(tSupply) {
			return cloneAmount(s.Reflected), cloneAmount(s.Token), nil
		}
		rSupply.Sub(rSupply, account.Reflected)
		tSupply.Sub(tSupply, account.Token)
	}
	if tSupply.IsZero() || rSupply.Lt(s.Rate()) {
		return cloneAmount(s.Reflected), cloneAmount(s.Token), nil
	}
	return rSupply, tSupply, nil
}

func (l *Ledger) currentRate(s Supply) (*uint256.Int, error) {
	rSupply, tSupply, err := l.currentSupply(s)
	if err != nil {
		return nil, err
	}
	if tSupply.IsZero() {
		return new(uint256.Int), nil
	}
	return rSupply.Div(rSupply, tSupply), nil
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

func (l *Ledger) loadSupply() (Supply, error) {
	var stored Supply
	ok, err := l.state.KVGet(supplyKey, &stored)
	if err != nil {
		return Supply{}, fmt.Errorf("reflection: load supply: %w", err)
	}
	if !ok {
		return Supply{}, ErrNotMinted
	}
	return stored.Copy(), nil
}

func (l *Ledger) putSupply(s Supply) error {
	return l.state.KVPut(supplyKey, s.Copy())
}
