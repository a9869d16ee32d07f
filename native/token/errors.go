package token

import (
	"errors"
	"fmt"

	nativecommon "reflexledger/native/common"
)

var (
	ErrZeroSender    = fmt.Errorf("%w: token: transfer from the zero address", nativecommon.ErrInvariantViolation)
	ErrZeroRecipient = fmt.Errorf("%w: token: transfer to the zero address", nativecommon.ErrInvariantViolation)
	ErrZeroAmount    = fmt.Errorf("%w: token: amount must be greater than zero", nativecommon.ErrInvariantViolation)
	ErrExceedsMaxTx  = fmt.Errorf("%w: token: transfer amount exceeds the max transaction amount", nativecommon.ErrInvariantViolation)
	ErrZeroAddress   = fmt.Errorf("%w: token: zero address", nativecommon.ErrInvariantViolation)
	ErrNilAmount     = fmt.Errorf("%w: token: amount required", nativecommon.ErrInvariantViolation)

	// ErrOwnTokenWithdrawal rejects withdrawing the token's own balance while
	// that balance is earmarked for swap and liquify.
	ErrOwnTokenWithdrawal = fmt.Errorf("%w: token: own token cannot be withdrawn while swap and liquify is enabled", nativecommon.ErrStateConflict)
	// ErrInsufficientAssetBalance is returned when a withdrawal asks for more
	// than the token contract holds.
	ErrInsufficientAssetBalance = fmt.Errorf("%w: token: insufficient balance to withdraw", nativecommon.ErrInvariantViolation)
	ErrUnknownAsset             = fmt.Errorf("%w: token: asset not registered", nativecommon.ErrInvariantViolation)

	errNilState = errors.New("token: state not configured")
)
