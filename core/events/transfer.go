package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/types"
)

const (
	// TypeTransfer reports the token-space amount received by the recipient.
	TypeTransfer = "token.transfer"
	// TypeTransferStandard is emitted when neither side is excluded from reward.
	TypeTransferStandard = "token.transfer.standard"
	// TypeTransferFromExcluded is emitted when only the sender is excluded.
	TypeTransferFromExcluded = "token.transfer.fromExcluded"
	// TypeTransferToExcluded is emitted when only the recipient is excluded.
	TypeTransferToExcluded = "token.transfer.toExcluded"
	// TypeTransferFromSender and TypeTransferToRecipient are emitted together
	// when both sides are excluded.
	TypeTransferFromSender  = "token.transfer.fromSender"
	TypeTransferToRecipient = "token.transfer.toRecipient"
)

// Transfer carries the net token amount credited to the recipient alongside
// the gross amounts in both spaces.
type Transfer struct {
	From              common.Address
	To                common.Address
	Value             *uint256.Int
	Gross             *uint256.Int
	ReflectedAmount   *uint256.Int
	ReflectedTransfer *uint256.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"from":            formatAddress(e.From),
		"to":              formatAddress(e.To),
		"value":           formatAmount(e.Value),
		"gross":           formatAmount(e.Gross),
		"rAmount":         formatAmount(e.ReflectedAmount),
		"rTransferAmount": formatAmount(e.ReflectedTransfer),
	}}
}

// TransferStandard carries the post-transfer reflected balances of both sides.
type TransferStandard struct {
	Sender             common.Address
	Recipient          common.Address
	ReflectedSender    *uint256.Int
	ReflectedRecipient *uint256.Int
}

func (TransferStandard) EventType() string { return TypeTransferStandard }

func (e TransferStandard) Event() *types.Event {
	return &types.Event{Type: TypeTransferStandard, Attributes: map[string]string{
		"sender":             formatAddress(e.Sender),
		"recipient":          formatAddress(e.Recipient),
		"reflectedSender":    formatAmount(e.ReflectedSender),
		"reflectedRecipient": formatAmount(e.ReflectedRecipient),
	}}
}

type TransferFromExcluded struct {
	Sender             common.Address
	Recipient          common.Address
	TokenSender        *uint256.Int
	ReflectedSender    *uint256.Int
	ReflectedRecipient *uint256.Int
}

func (TransferFromExcluded) EventType() string { return TypeTransferFromExcluded }

func (e TransferFromExcluded) Event() *types.Event {
	return &types.Event{Type: TypeTransferFromExcluded, Attributes: map[string]string{
		"sender":             formatAddress(e.Sender),
		"recipient":          formatAddress(e.Recipient),
		"tokenSender":        formatAmount(e.TokenSender),
		"reflectedSender":    formatAmount(e.ReflectedSender),
		"reflectedRecipient": formatAmount(e.ReflectedRecipient),
	}}
}

type TransferToExcluded struct {
	Sender             common.Address
	Recipient          common.Address
	ReflectedSender    *uint256.Int
	TokenRecipient     *uint256.Int
	ReflectedRecipient *uint256.Int
}

func (TransferToExcluded) EventType() string { return TypeTransferToExcluded }

func (e TransferToExcluded) Event() *types.Event {
	return &types.Event{Type: TypeTransferToExcluded, Attributes: map[string]string{
		"sender":             formatAddress(e.Sender),
		"recipient":          formatAddress(e.Recipient),
		"reflectedSender":    formatAmount(e.ReflectedSender),
		"tokenRecipient":     formatAmount(e.TokenRecipient),
		"reflectedRecipient": formatAmount(e.ReflectedRecipient),
	}}
}

type TransferFromSender struct {
	Sender    common.Address
	Token     *uint256.Int
	Reflected *uint256.Int
}

func (TransferFromSender) EventType() string { return TypeTransferFromSender }

func (e TransferFromSender) Event() *types.Event {
	return &types.Event{Type: TypeTransferFromSender, Attributes: map[string]string{
		"sender":    formatAddress(e.Sender),
		"token":     formatAmount(e.Token),
		"reflected": formatAmount(e.Reflected),
	}}
}

type TransferToRecipient struct {
	Recipient common.Address
	Token     *uint256.Int
	Reflected *uint256.Int
}

func (TransferToRecipient) EventType() string { return TypeTransferToRecipient }

func (e TransferToRecipient) Event() *types.Event {
	return &types.Event{Type: TypeTransferToRecipient, Attributes: map[string]string{
		"recipient": formatAddress(e.Recipient),
		"token":     formatAmount(e.Token),
		"reflected": formatAmount(e.Reflected),
	}}
}
