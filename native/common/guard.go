package common

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// OwnerView exposes the current privileged owner. A zero address means no one
// holds ownership (for example while ownership is time-locked).
type OwnerView interface {
	Owner() (ethcommon.Address, error)
}

// Guard rejects callers that do not currently hold ownership.
func Guard(o OwnerView, caller ethcommon.Address) error {
	if o == nil {
		return fmt.Errorf("%w: ownership not configured", ErrPermissionDenied)
	}
	owner, err := o.Owner()
	if err != nil {
		return err
	}
	if owner == (ethcommon.Address{}) || owner != caller {
		return fmt.Errorf("%w: caller %s is not the owner", ErrPermissionDenied, caller.Hex())
	}
	return nil
}
