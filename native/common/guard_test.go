package common

import (
	"errors"
	"fmt"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type stubOwner struct {
	owner ethcommon.Address
	err   error
}

func (s stubOwner) Owner() (ethcommon.Address, error) { return s.owner, s.err }

func TestGuard(t *testing.T) {
	owner := ethcommon.HexToAddress("0x1")
	other := ethcommon.HexToAddress("0x2")

	if err := Guard(stubOwner{owner: owner}, owner); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}
	if err := Guard(stubOwner{owner: owner}, other); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := Guard(stubOwner{}, ethcommon.Address{}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected locked ownership to reject the zero caller, got %v", err)
	}
	if err := Guard(nil, owner); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected nil view to reject, got %v", err)
	}
	boom := errors.New("boom")
	if err := Guard(stubOwner{err: boom}, owner); !errors.Is(err, boom) {
		t.Fatalf("expected view error to propagate, got %v", err)
	}
}

func TestClassLabel(t *testing.T) {
	cases := map[string]error{
		"invariant":  fmt.Errorf("%w: zero amount", ErrInvariantViolation),
		"permission": fmt.Errorf("wrapped: %w", fmt.Errorf("%w: x", ErrPermissionDenied)),
		"conflict":   fmt.Errorf("%w: locked", ErrStateConflict),
		"external":   fmt.Errorf("%w: swap", ErrExternalCallFailure),
		"internal":   errors.New("disk"),
		"none":       nil,
	}
	for want, err := range cases {
		if got := ClassLabel(err); got != want {
			t.Fatalf("expected %s for %v, got %s", want, err, got)
		}
	}
}
