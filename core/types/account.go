package types

import "github.com/holiman/uint256"

// RewardMode tags which balance representation is authoritative for an account.
type RewardMode uint8

const (
	// RewardIncluded accounts derive their balance from the reflected share.
	RewardIncluded RewardMode = iota
	// RewardExcluded accounts hold an explicit token-space balance; the
	// reflected share is still maintained so total reflected supply stays
	// consistent.
	RewardExcluded
)

func (m RewardMode) String() string {
	switch m {
	case RewardIncluded:
		return "included"
	case RewardExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Account is the per-address record kept by the reflection ledger.
type Account struct {
	Mode      RewardMode   `json:"mode"`
	Reflected *uint256.Int `json:"reflected"`
	// Token is only meaningful while Mode is RewardExcluded.
	Token *uint256.Int `json:"token"`
}

// NewAccount returns an empty reward-included account.
func NewAccount() *Account {
	return &Account{Mode: RewardIncluded, Reflected: new(uint256.Int), Token: new(uint256.Int)}
}

// Excluded reports whether the token-space balance is authoritative.
func (a *Account) Excluded() bool {
	return a != nil && a.Mode == RewardExcluded
}

// EnsureDefaults replaces nil amounts with zero values.
func (a *Account) EnsureDefaults() {
	if a.Reflected == nil {
		a.Reflected = new(uint256.Int)
	}
	if a.Token == nil {
		a.Token = new(uint256.Int)
	}
}

// Copy returns a deep copy so callers can mutate without aliasing stored state.
func (a *Account) Copy() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Mode: a.Mode}
	if a.Reflected != nil {
		clone.Reflected = new(uint256.Int).Set(a.Reflected)
	}
	if a.Token != nil {
		clone.Token = new(uint256.Int).Set(a.Token)
	}
	clone.EnsureDefaults()
	return clone
}
