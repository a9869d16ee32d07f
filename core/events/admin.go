package events

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/types"
)

const (
	TypeFeeExclusion         = "exclusion.fee"
	TypeRewardExclusion      = "exclusion.reward"
	TypeOwnershipLocked      = "ownership.locked"
	TypeOwnershipUnlocked    = "ownership.unlocked"
	TypeOwnershipTransferred = "ownership.transferred"
	TypeWithdrawAlienToken   = "withdraw.alienToken"
	TypeWithdrawLeftovers    = "withdraw.leftovers"
)

type FeeExclusion struct {
	Account  common.Address
	Excluded bool
}

func (FeeExclusion) EventType() string { return TypeFeeExclusion }

func (e FeeExclusion) Event() *types.Event {
	return &types.Event{Type: TypeFeeExclusion, Attributes: map[string]string{
		"account":  formatAddress(e.Account),
		"excluded": formatBool(e.Excluded),
	}}
}

// RewardExclusion reports a representation switch. Token is the explicit
// balance set on exclusion, or the one discarded on inclusion.
type RewardExclusion struct {
	Account  common.Address
	Excluded bool
	Token    *uint256.Int
}

func (RewardExclusion) EventType() string { return TypeRewardExclusion }

func (e RewardExclusion) Event() *types.Event {
	return &types.Event{Type: TypeRewardExclusion, Attributes: map[string]string{
		"account":  formatAddress(e.Account),
		"excluded": formatBool(e.Excluded),
		"token":    formatAmount(e.Token),
	}}
}

type OwnershipLocked struct {
	PreviousOwner common.Address
	UnlockTime    int64
}

func (OwnershipLocked) EventType() string { return TypeOwnershipLocked }

func (e OwnershipLocked) Event() *types.Event {
	return &types.Event{Type: TypeOwnershipLocked, Attributes: map[string]string{
		"previousOwner":  formatAddress(e.PreviousOwner),
		"unlockTimeUnix": strconv.FormatInt(e.UnlockTime, 10),
	}}
}

type OwnershipUnlocked struct {
	Owner common.Address
}

func (OwnershipUnlocked) EventType() string { return TypeOwnershipUnlocked }

func (e OwnershipUnlocked) Event() *types.Event {
	return &types.Event{Type: TypeOwnershipUnlocked, Attributes: map[string]string{
		"owner": formatAddress(e.Owner),
	}}
}

type OwnershipTransferred struct {
	PreviousOwner common.Address
	NewOwner      common.Address
}

func (OwnershipTransferred) EventType() string { return TypeOwnershipTransferred }

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{Type: TypeOwnershipTransferred, Attributes: map[string]string{
		"previousOwner": formatAddress(e.PreviousOwner),
		"newOwner":      formatAddress(e.NewOwner),
	}}
}

type WithdrawAlienToken struct {
	Token     common.Address
	Recipient common.Address
	Amount    *uint256.Int
}

func (WithdrawAlienToken) EventType() string { return TypeWithdrawAlienToken }

func (e WithdrawAlienToken) Event() *types.Event {
	return &types.Event{Type: TypeWithdrawAlienToken, Attributes: map[string]string{
		"token":     formatAddress(e.Token),
		"recipient": formatAddress(e.Recipient),
		"amount":    formatAmount(e.Amount),
	}}
}

type WithdrawLeftovers struct {
	Recipient common.Address
	Amount    *uint256.Int
}

func (WithdrawLeftovers) EventType() string { return TypeWithdrawLeftovers }

func (e WithdrawLeftovers) Event() *types.Event {
	return &types.Event{Type: TypeWithdrawLeftovers, Attributes: map[string]string{
		"recipient": formatAddress(e.Recipient),
		"amount":    formatAmount(e.Amount),
	}}
}
