package exclusion

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "reflexledger/native/common"
)

var (
	// ErrAlreadyExcluded is returned when excluding an account already
	// excluded from reward.
	ErrAlreadyExcluded = fmt.Errorf("%w: exclusion: account already excluded", nativecommon.ErrStateConflict)
	// ErrNotExcluded is returned when including an account that is not
	// excluded from reward.
	ErrNotExcluded = fmt.Errorf("%w: exclusion: account not excluded", nativecommon.ErrStateConflict)

	errNilStore = errors.New("exclusion: store not configured")
)

var (
	feePrefix         = []byte("exclusion/fee/")
	rewardIndexPrefix = []byte("exclusion/reward/index/")
	rewardSlotPrefix  = []byte("exclusion/reward/slot/")
	rewardLenKey      = []byte("exclusion/reward/len")
)

type store interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Registry tracks fee exemptions and the ordered set of reward-excluded
// accounts. Removal from the reward set swaps the last entry into the freed
// slot so both insertion and removal touch a constant number of keys.
type Registry struct {
	store store
}

// NewRegistry returns a registry persisting into s.
func NewRegistry(s store) *Registry {
	return &Registry{store: s}
}

func keyFor(prefix []byte, addr common.Address) []byte {
	return append(append([]byte(nil), prefix...), addr.Bytes()...)
}

func slotKey(i uint64) []byte {
	return fmt.Appendf(append([]byte(nil), rewardSlotPrefix...), "%d", i)
}

// IsExcludedFromFee reports whether transfers touching addr skip fees.
func (r *Registry) IsExcludedFromFee(addr common.Address) (bool, error) {
	if r == nil || r.store == nil {
		return false, errNilStore
	}
	var flag bool
	if _, err := r.store.KVGet(keyFor(feePrefix, addr), &flag); err != nil {
		return false, fmt.Errorf("exclusion: load fee flag: %w", err)
	}
	return flag, nil
}

// SetExcludedFromFee sets the fee flag. Setting the current value is a no-op.
func (r *Registry) SetExcludedFromFee(addr common.Address, excluded bool) error {
	if r == nil || r.store == nil {
		return errNilStore
	}
	if !excluded {
		return r.store.KVDelete(keyFor(feePrefix, addr))
	}
	return r.store.KVPut(keyFor(feePrefix, addr), true)
}

func (r *Registry) index(addr common.Address) (uint64, bool, error) {
	var idx uint64
	ok, err := r.store.KVGet(keyFor(rewardIndexPrefix, addr), &idx)
	if err != nil {
		return 0, false, fmt.Errorf("exclusion: load reward index: %w", err)
	}
	return idx, ok, nil
}

// Len returns the number of reward-excluded accounts.
func (r *Registry) Len() (uint64, error) {
	if r == nil || r.store == nil {
		return 0, errNilStore
	}
	var n uint64
	if _, err := r.store.KVGet(rewardLenKey, &n); err != nil {
		return 0, fmt.Errorf("exclusion: load reward count: %w", err)
	}
	return n, nil
}

// IsExcludedFromReward reports whether addr is in the reward-excluded set.
func (r *Registry) IsExcludedFromReward(addr common.Address) (bool, error) {
	if r == nil || r.store == nil {
		return false, errNilStore
	}
	_, ok, err := r.index(addr)
	return ok, err
}

// AddRewardExcluded appends addr to the reward-excluded set.
func (r *Registry) AddRewardExcluded(addr common.Address) error {
	if r == nil || r.store == nil {
		return errNilStore
	}
	if _, ok, err := r.index(addr); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExcluded, addr.Hex())
	}
	n, err := r.Len()
	if err != nil {
		return err
	}
	if err := r.store.KVPut(slotKey(n), addr); err != nil {
		return err
	}
	if err := r.store.KVPut(keyFor(rewardIndexPrefix, addr), n); err != nil {
		return err
	}
	return r.store.KVPut(rewardLenKey, n+1)
}

// RemoveRewardExcluded drops addr from the reward-excluded set, moving the
// last member into its slot.
func (r *Registry) RemoveRewardExcluded(addr common.Address) error {
	if r == nil || r.store == nil {
		return errNilStore
	}
	idx, ok, err := r.index(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotExcluded, addr.Hex())
	}
	n, err := r.Len()
	if err != nil {
		return err
	}
	last := n - 1
	if idx != last {
		var moved common.Address
		if _, err := r.store.KVGet(slotKey(last), &moved); err != nil {
			return fmt.Errorf("exclusion: load reward slot: %w", err)
		}
		if err := r.store.KVPut(slotKey(idx), moved); err != nil {
			return err
		}
		if err := r.store.KVPut(keyFor(rewardIndexPrefix, moved), idx); err != nil {
			return err
		}
	}
	if err := r.store.KVDelete(slotKey(last)); err != nil {
		return err
	}
	if err := r.store.KVDelete(keyFor(rewardIndexPrefix, addr)); err != nil {
		return err
	}
	return r.store.KVPut(rewardLenKey, last)
}

// RewardExcluded enumerates the reward-excluded set in slot order.
func (r *Registry) RewardExcluded() ([]common.Address, error) {
	n, err := r.Len()
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		var addr common.Address
		if _, err := r.store.KVGet(slotKey(i), &addr); err != nil {
			return nil, fmt.Errorf("exclusion: load reward slot: %w", err)
		}
		out = append(out, addr)
	}
	return out, nil
}
