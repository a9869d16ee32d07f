package reflection

import (
	"errors"
	"fmt"

	nativecommon "reflexledger/native/common"
)

var (
	ErrInsufficientBalance      = fmt.Errorf("%w: reflection: transfer amount exceeds balance", nativecommon.ErrInvariantViolation)
	ErrAmountExceedsSupply      = fmt.Errorf("%w: reflection: amount must be less than supply", nativecommon.ErrInvariantViolation)
	ErrAmountExceedsReflections = fmt.Errorf("%w: reflection: amount must be less than total reflections", nativecommon.ErrInvariantViolation)
	ErrSupplyExceeded           = fmt.Errorf("%w: reflection: reflected fee exceeds reflected supply", nativecommon.ErrInvariantViolation)
	ErrZeroSupply               = fmt.Errorf("%w: reflection: total supply must be positive", nativecommon.ErrInvariantViolation)
	ErrExcludedCallerRejected   = fmt.Errorf("%w: reflection: excluded addresses cannot call this function", nativecommon.ErrPermissionDenied)
	ErrAlreadyMinted            = fmt.Errorf("%w: reflection: supply already minted", nativecommon.ErrStateConflict)
	ErrNotMinted                = fmt.Errorf("%w: reflection: supply not minted", nativecommon.ErrStateConflict)
	ErrOverflow                 = fmt.Errorf("%w: reflection: arithmetic overflow", nativecommon.ErrInvariantViolation)

	errNilState = errors.New("reflection: state not configured")
)
