package types

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestAccountCopyDoesNotAlias(t *testing.T) {
	acc := &Account{Mode: RewardExcluded, Reflected: uint256.NewInt(10)}
	clone := acc.Copy()
	clone.Reflected.AddUint64(clone.Reflected, 5)
	if acc.Reflected.Uint64() != 10 {
		t.Fatalf("expected original reflected 10, got %s", acc.Reflected)
	}
	if clone.Token == nil || !clone.Token.IsZero() {
		t.Fatalf("expected defaulted token balance")
	}
	if !clone.Excluded() {
		t.Fatalf("expected excluded mode to survive copy")
	}
}

func TestRewardModeString(t *testing.T) {
	if RewardIncluded.String() != "included" || RewardExcluded.String() != "excluded" {
		t.Fatalf("unexpected mode names")
	}
	if RewardMode(9).String() != "unknown" {
		t.Fatalf("expected unknown for out-of-range mode")
	}
}
