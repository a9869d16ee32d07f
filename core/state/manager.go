package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"reflexledger/storage"
)

// ErrInvalidSnapshot is returned when reverting to a snapshot that no longer
// exists (already reverted, or invalidated by Commit).
var ErrInvalidSnapshot = errors.New("state: invalid snapshot")

type slot struct {
	value   []byte
	deleted bool
}

type journalEntry struct {
	key      string
	prev     slot
	hadSlot  bool
	wasDirty bool
}

// Manager is a journaled key/value overlay on top of a storage.Database.
// Writes stay in memory until Commit; Snapshot/RevertToSnapshot undo writes so
// an operation and everything it triggered can be rolled back as a unit.
//
// Manager is not safe for concurrent use.
type Manager struct {
	db      storage.Database
	cache   map[string]slot
	dirty   map[string]struct{}
	journal []journalEntry
	// validSnapshots holds the journal lengths handed out by Snapshot.
	validSnapshots []int
}

// NewManager creates a state manager backed by db.
func NewManager(db storage.Database) *Manager {
	if db == nil {
		db = storage.NewMemDB()
	}
	return &Manager{
		db:    db,
		cache: make(map[string]slot),
		dirty: make(map[string]struct{}),
	}
}

func kvKey(key []byte) string {
	return string(ethcrypto.Keccak256(key))
}

func (m *Manager) load(hashed string) ([]byte, error) {
	if s, ok := m.cache[hashed]; ok {
		if s.deleted {
			return nil, nil
		}
		return s.value, nil
	}
	data, err := m.db.Get([]byte(hashed))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (m *Manager) write(hashed string, next slot) {
	prev, had := m.cache[hashed]
	_, wasDirty := m.dirty[hashed]
	m.journal = append(m.journal, journalEntry{key: hashed, prev: prev, hadSlot: had, wasDirty: wasDirty})
	m.cache[hashed] = next
	m.dirty[hashed] = struct{}{}
}

// KVPut stores the rlp encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.write(kvKey(key), slot{value: encoded})
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.load(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key from state.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.write(kvKey(key), slot{deleted: true})
	return nil
}

// Snapshot returns an identifier for the current journal position.
func (m *Manager) Snapshot() int {
	id := len(m.journal)
	m.validSnapshots = append(m.validSnapshots, id)
	return id
}

// RevertToSnapshot undoes every write recorded after the snapshot was taken.
// Snapshots taken after id are invalidated.
func (m *Manager) RevertToSnapshot(id int) error {
	idx := m.snapshotIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSnapshot, id)
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.hadSlot {
			m.cache[entry.key] = entry.prev
		} else {
			delete(m.cache, entry.key)
		}
		if !entry.wasDirty {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:id]
	m.validSnapshots = m.validSnapshots[:idx]
	return nil
}

// DiscardSnapshot releases a snapshot whose writes are being kept.
func (m *Manager) DiscardSnapshot(id int) {
	if idx := m.snapshotIndex(id); idx >= 0 {
		m.validSnapshots = m.validSnapshots[:idx]
	}
}

// snapshotIndex finds the innermost outstanding snapshot with the given id.
func (m *Manager) snapshotIndex(id int) int {
	for i := len(m.validSnapshots) - 1; i >= 0; i-- {
		if m.validSnapshots[i] == id {
			return i
		}
		if m.validSnapshots[i] < id {
			break
		}
	}
	return -1
}

// Dirty returns the number of keys written since the last commit.
func (m *Manager) Dirty() int { return len(m.dirty) }

// Commit flushes dirty keys to the backing database and clears the journal.
// Outstanding snapshots become invalid.
func (m *Manager) Commit() error {
	if len(m.dirty) == 0 {
		m.journal = m.journal[:0]
		m.validSnapshots = m.validSnapshots[:0]
		return nil
	}
	puts := make(map[string][]byte, len(m.dirty))
	var deletes []string
	for key := range m.dirty {
		s := m.cache[key]
		if s.deleted {
			deletes = append(deletes, key)
			continue
		}
		puts[key] = s.value
	}
	if batcher, ok := m.db.(storage.Batcher); ok {
		if err := batcher.WriteBatch(puts, deletes); err != nil {
			return fmt.Errorf("state: commit: %w", err)
		}
	} else {
		for key, value := range puts {
			if err := m.db.Put([]byte(key), value); err != nil {
				return fmt.Errorf("state: commit: %w", err)
			}
		}
		for _, key := range deletes {
			if err := m.db.Delete([]byte(key)); err != nil {
				return fmt.Errorf("state: commit: %w", err)
			}
		}
	}
	m.dirty = make(map[string]struct{})
	m.journal = m.journal[:0]
	m.validSnapshots = m.validSnapshots[:0]
	return nil
}
