package ownership

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"reflexledger/core/events"
	nativecommon "reflexledger/native/common"
)

var (
	// ErrStillLocked is returned by Unlock before the unlock time.
	ErrStillLocked = fmt.Errorf("%w: ownership: contract is locked until the unlock time", nativecommon.ErrStateConflict)
	// ErrZeroOwner is returned when transferring ownership to the zero address.
	ErrZeroOwner = fmt.Errorf("%w: ownership: new owner is the zero address", nativecommon.ErrInvariantViolation)
	// ErrNotPreviousOwner is returned when someone other than the locker tries
	// to unlock.
	ErrNotPreviousOwner = fmt.Errorf("%w: ownership: caller is not the previous owner", nativecommon.ErrPermissionDenied)

	errNilStore = errors.New("ownership: store not configured")
)

var lockKey = []byte("ownership/lock")

type store interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedLock struct {
	Owner         common.Address
	PreviousOwner common.Address
	UnlockTime    uint64
}

// Timelock holds ownership and lets the owner give it up for a fixed period.
// While locked there is no owner, so every owner-gated operation fails; only
// the account that locked can take ownership back once the period expires.
type Timelock struct {
	store   store
	now     func() time.Time
	emitter events.Emitter
}

// NewTimelock returns a timelock persisting into s using the wall clock.
func NewTimelock(s store) *Timelock {
	return &Timelock{store: s, now: time.Now, emitter: events.NoopEmitter{}}
}

// SetClock overrides the time source.
func (t *Timelock) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	t.now = now
}

// SetEmitter configures the sink for ownership events.
func (t *Timelock) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	t.emitter = emitter
}

func (t *Timelock) load() (storedLock, error) {
	if t == nil || t.store == nil {
		return storedLock{}, errNilStore
	}
	var lock storedLock
	if _, err := t.store.KVGet(lockKey, &lock); err != nil {
		return storedLock{}, fmt.Errorf("ownership: load: %w", err)
	}
	return lock, nil
}

func (t *Timelock) put(lock storedLock) error {
	return t.store.KVPut(lockKey, &lock)
}

// Init records the initial owner. It is a no-op once an owner, or a pending
// lock, has been recorded.
func (t *Timelock) Init(owner common.Address) error {
	lock, err := t.load()
	if err != nil {
		return err
	}
	if lock.Owner != (common.Address{}) || lock.PreviousOwner != (common.Address{}) {
		return nil
	}
	if owner == (common.Address{}) {
		return ErrZeroOwner
	}
	lock.Owner = owner
	if err := t.put(lock); err != nil {
		return err
	}
	t.emitter.Emit(events.OwnershipTransferred{NewOwner: owner})
	return nil
}

// Owner returns the current owner, or the zero address while locked.
func (t *Timelock) Owner() (common.Address, error) {
	lock, err := t.load()
	if err != nil {
		return common.Address{}, err
	}
	return lock.Owner, nil
}

// PreviousOwner returns the account allowed to unlock.
func (t *Timelock) PreviousOwner() (common.Address, error) {
	lock, err := t.load()
	if err != nil {
		return common.Address{}, err
	}
	return lock.PreviousOwner, nil
}

// UnlockTime returns the unix time after which Unlock succeeds. Zero means no
// lock has been taken.
func (t *Timelock) UnlockTime() (int64, error) {
	lock, err := t.load()
	if err != nil {
		return 0, err
	}
	return int64(lock.UnlockTime), nil
}

// Locked reports whether ownership is currently given up by a lock.
func (t *Timelock) Locked() (bool, error) {
	lock, err := t.load()
	if err != nil {
		return false, err
	}
	return lock.Owner == (common.Address{}) && lock.PreviousOwner != (common.Address{}), nil
}

// RequireOwner fails with a permission error unless caller is the owner.
func (t *Timelock) RequireOwner(caller common.Address) error {
	return nativecommon.Guard(t, caller)
}

// Lock gives up ownership for duration.
func (t *Timelock) Lock(caller common.Address, duration time.Duration) error {
	if err := t.RequireOwner(caller); err != nil {
		return err
	}
	if duration < 0 {
		return fmt.Errorf("%w: ownership: negative lock duration", nativecommon.ErrInvariantViolation)
	}
	unlockAt := t.now().Add(duration).Unix()
	if unlockAt < 0 {
		unlockAt = 0
	}
	lock := storedLock{PreviousOwner: caller, UnlockTime: uint64(unlockAt)}
	if err := t.put(lock); err != nil {
		return err
	}
	t.emitter.Emit(events.OwnershipTransferred{PreviousOwner: caller})
	t.emitter.Emit(events.OwnershipLocked{PreviousOwner: caller, UnlockTime: unlockAt})
	return nil
}

// Unlock restores ownership to the account that locked it.
func (t *Timelock) Unlock(caller common.Address) error {
	lock, err := t.load()
	if err != nil {
		return err
	}
	if lock.PreviousOwner == (common.Address{}) || lock.PreviousOwner != caller {
		return fmt.Errorf("%w: %s", ErrNotPreviousOwner, caller.Hex())
	}
	if t.now().Unix() < int64(lock.UnlockTime) {
		return fmt.Errorf("%w: unlock at %d", ErrStillLocked, lock.UnlockTime)
	}
	restored := storedLock{Owner: caller, UnlockTime: lock.UnlockTime}
	if err := t.put(restored); err != nil {
		return err
	}
	t.emitter.Emit(events.OwnershipTransferred{NewOwner: caller})
	t.emitter.Emit(events.OwnershipUnlocked{Owner: caller})
	return nil
}

// TransferOwnership hands ownership to newOwner.
func (t *Timelock) TransferOwnership(caller, newOwner common.Address) error {
	if err := t.RequireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrZeroOwner
	}
	lock, err := t.load()
	if err != nil {
		return err
	}
	lock.Owner = newOwner
	if err := t.put(lock); err != nil {
		return err
	}
	t.emitter.Emit(events.OwnershipTransferred{PreviousOwner: caller, NewOwner: newOwner})
	return nil
}

// RenounceOwnership leaves the token without an owner permanently.
func (t *Timelock) RenounceOwnership(caller common.Address) error {
	if err := t.RequireOwner(caller); err != nil {
		return err
	}
	lock, err := t.load()
	if err != nil {
		return err
	}
	lock.Owner = common.Address{}
	lock.PreviousOwner = common.Address{}
	if err := t.put(lock); err != nil {
		return err
	}
	t.emitter.Emit(events.OwnershipTransferred{PreviousOwner: caller})
	return nil
}
