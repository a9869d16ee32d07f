package exclusion

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"reflexledger/core/state"
	nativecommon "reflexledger/native/common"
)

func newRegistry() *Registry {
	return NewRegistry(state.NewManager(nil))
}

func TestFeeFlags(t *testing.T) {
	reg := newRegistry()
	addr := common.HexToAddress("0x1")
	excluded, err := reg.IsExcludedFromFee(addr)
	if err != nil || excluded {
		t.Fatalf("expected unknown account to pay fees, got %v %v", excluded, err)
	}
	if err := reg.SetExcludedFromFee(addr, true); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	if err := reg.SetExcludedFromFee(addr, true); err != nil {
		t.Fatalf("repeat exclude: %v", err)
	}
	if excluded, _ := reg.IsExcludedFromFee(addr); !excluded {
		t.Fatalf("expected account to be fee excluded")
	}
	if err := reg.SetExcludedFromFee(addr, false); err != nil {
		t.Fatalf("include: %v", err)
	}
	if excluded, _ := reg.IsExcludedFromFee(addr); excluded {
		t.Fatalf("expected account to pay fees again")
	}
}

func TestRewardSetSwapRemove(t *testing.T) {
	reg := newRegistry()
	a := common.HexToAddress("0xa")
	b := common.HexToAddress("0xb")
	c := common.HexToAddress("0xc")
	for _, addr := range []common.Address{a, b, c} {
		if err := reg.AddRewardExcluded(addr); err != nil {
			t.Fatalf("add %s: %v", addr.Hex(), err)
		}
	}
	if err := reg.AddRewardExcluded(b); !errors.Is(err, ErrAlreadyExcluded) {
		t.Fatalf("expected already excluded, got %v", err)
	}
	if err := reg.RemoveRewardExcluded(a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	members, err := reg.RewardExcluded()
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(members) != 2 || members[0] != c || members[1] != b {
		t.Fatalf("expected [c b] after swap-remove, got %v", members)
	}
	if ok, _ := reg.IsExcludedFromReward(a); ok {
		t.Fatalf("expected a to be removed")
	}
	if err := reg.RemoveRewardExcluded(a); !errors.Is(err, ErrNotExcluded) || !errors.Is(err, nativecommon.ErrStateConflict) {
		t.Fatalf("expected not excluded conflict, got %v", err)
	}
	if err := reg.RemoveRewardExcluded(b); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	members, _ = reg.RewardExcluded()
	if len(members) != 1 || members[0] != c {
		t.Fatalf("expected [c], got %v", members)
	}
	if n, _ := reg.Len(); n != 1 {
		t.Fatalf("expected length 1, got %d", n)
	}
}

func TestNilRegistry(t *testing.T) {
	var reg *Registry
	if _, err := reg.IsExcludedFromFee(common.Address{}); err == nil {
		t.Fatalf("expected error from nil registry")
	}
}
