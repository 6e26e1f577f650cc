package datastore

import (
	"github.com/hashicorp/raft"
)

// StableStore adapts a raft.StableStore so an embedding raft node can share its
// stable storage with the log unit.
type StableStore struct {
	store raft.StableStore
}

func NewStableStore(store raft.StableStore) *StableStore {
	return &StableStore{store: store}
}

// NewInmem returns a volatile store, used by tests and by -datastore=memory.
func NewInmem() *StableStore {
	return NewStableStore(raft.NewInmemStore())
}

func (s *StableStore) Get(record KvRecord) ([]byte, error) {
	val, err := s.store.Get([]byte(record.FullKey()))
	if err != nil {
		// raft stores report a missing key with a plain "not found" error
		if err.Error() == "not found" {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	if len(val) == 0 {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

func (s *StableStore) Put(record KvRecord, value []byte) error {
	return s.store.Set([]byte(record.FullKey()), value)
}

// Delete writes an empty value; raft.StableStore has no delete.
func (s *StableStore) Delete(record KvRecord) error {
	return s.store.Set([]byte(record.FullKey()), nil)
}

func (s *StableStore) Close() error {
	return nil
}
