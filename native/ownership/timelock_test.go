package ownership

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"reflexledger/core/events"
	"reflexledger/core/state"
	nativecommon "reflexledger/native/common"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTimelock(t *testing.T, owner common.Address) (*Timelock, *fakeClock, *events.Buffer) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	buf := &events.Buffer{}
	tl := NewTimelock(state.NewManager(nil))
	tl.SetClock(clock.Now)
	tl.SetEmitter(buf)
	if err := tl.Init(owner); err != nil {
		t.Fatalf("init: %v", err)
	}
	return tl, clock, buf
}

func TestLockUnlockCycle(t *testing.T) {
	owner := common.HexToAddress("0x1")
	tl, clock, buf := newTimelock(t, owner)

	if err := tl.Lock(owner, time.Hour); err != nil {
		t.Fatalf("lock: %v", err)
	}
	current, err := tl.Owner()
	if err != nil || current != (common.Address{}) {
		t.Fatalf("expected no owner while locked, got %s %v", current.Hex(), err)
	}
	if locked, _ := tl.Locked(); !locked {
		t.Fatalf("expected locked state")
	}
	unlockAt, _ := tl.UnlockTime()
	if unlockAt != clock.now.Add(time.Hour).Unix() {
		t.Fatalf("unexpected unlock time %d", unlockAt)
	}
	if err := tl.RequireOwner(owner); !errors.Is(err, nativecommon.ErrPermissionDenied) {
		t.Fatalf("expected owner operations to be rejected while locked, got %v", err)
	}

	clock.now = clock.now.Add(59 * time.Minute)
	if err := tl.Unlock(owner); !errors.Is(err, ErrStillLocked) {
		t.Fatalf("expected still locked, got %v", err)
	}
	clock.now = clock.now.Add(time.Minute)
	if err := tl.Unlock(owner); err != nil {
		t.Fatalf("unlock at boundary: %v", err)
	}
	if current, _ := tl.Owner(); current != owner {
		t.Fatalf("expected ownership restored, got %s", current.Hex())
	}
	if previous, _ := tl.PreviousOwner(); previous != (common.Address{}) {
		t.Fatalf("expected previous owner cleared, got %s", previous.Hex())
	}
	if got := len(buf.OfType(events.TypeOwnershipUnlocked)); got != 1 {
		t.Fatalf("expected one unlock event, got %d", got)
	}

	// Locks can be taken again.
	if err := tl.Lock(owner, 0); err != nil {
		t.Fatalf("relock: %v", err)
	}
	if err := tl.Unlock(owner); err != nil {
		t.Fatalf("immediate unlock: %v", err)
	}
}

func TestUnlockRequiresPreviousOwner(t *testing.T) {
	owner := common.HexToAddress("0x1")
	stranger := common.HexToAddress("0x2")
	tl, clock, _ := newTimelock(t, owner)
	if err := tl.Lock(stranger, time.Second); !errors.Is(err, nativecommon.ErrPermissionDenied) {
		t.Fatalf("expected non-owner lock to fail, got %v", err)
	}
	if err := tl.Lock(owner, time.Second); err != nil {
		t.Fatalf("lock: %v", err)
	}
	clock.now = clock.now.Add(time.Hour)
	if err := tl.Unlock(stranger); !errors.Is(err, ErrNotPreviousOwner) || !errors.Is(err, nativecommon.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	owner := common.HexToAddress("0x1")
	next := common.HexToAddress("0x2")
	tl, _, _ := newTimelock(t, owner)
	if err := tl.TransferOwnership(owner, common.Address{}); !errors.Is(err, ErrZeroOwner) {
		t.Fatalf("expected zero owner rejection, got %v", err)
	}
	if err := tl.TransferOwnership(next, next); !errors.Is(err, nativecommon.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if err := tl.TransferOwnership(owner, next); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if current, _ := tl.Owner(); current != next {
		t.Fatalf("expected new owner, got %s", current.Hex())
	}
	// Init never overrides an existing owner.
	if err := tl.Init(owner); err != nil {
		t.Fatalf("init: %v", err)
	}
	if current, _ := tl.Owner(); current != next {
		t.Fatalf("expected init to be a no-op, got %s", current.Hex())
	}
}

func TestRenounceOwnership(t *testing.T) {
	owner := common.HexToAddress("0x1")
	tl, _, _ := newTimelock(t, owner)
	if err := tl.RenounceOwnership(owner); err != nil {
		t.Fatalf("renounce: %v", err)
	}
	if err := tl.RequireOwner(owner); !errors.Is(err, nativecommon.ErrPermissionDenied) {
		t.Fatalf("expected no owner after renounce, got %v", err)
	}
	if err := tl.Unlock(owner); !errors.Is(err, ErrNotPreviousOwner) {
		t.Fatalf("expected unlock to fail after renounce, got %v", err)
	}
}
