package datastore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/downfa11-org/logunit/util"
)

var (
	TailSegmentRecord     = NewKvRecord("TAIL_SEGMENT", "CURRENT")
	StartingAddressRecord = NewKvRecord("STARTING_ADDRESS", "CURRENT")
)

// StreamLogDataStore persists the two scalars the stream log needs across restarts.
// Values are cached and every update is written through before the cache moves.
type StreamLogDataStore struct {
	mu              sync.RWMutex
	store           DataStore
	tailSegment     int64
	startingAddress int64
}

func NewStreamLogDataStore(store DataStore) (*StreamLogDataStore, error) {
	tail, err := loadInt64(store, TailSegmentRecord)
	if err != nil {
		return nil, err
	}
	start, err := loadInt64(store, StartingAddressRecord)
	if err != nil {
		return nil, err
	}
	return &StreamLogDataStore{
		store:           store,
		tailSegment:     tail,
		startingAddress: start,
	}, nil
}

func (s *StreamLogDataStore) TailSegment() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tailSegment
}

// UpdateTailSegment ignores values that do not move the tail forward.
func (s *StreamLogDataStore) UpdateTailSegment(segment int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tailSegment >= segment {
		util.Debug("tail segment %d not ahead of current %d, ignoring", segment, s.tailSegment)
		return nil
	}
	if err := storeInt64(s.store, TailSegmentRecord, segment); err != nil {
		return err
	}
	s.tailSegment = segment
	return nil
}

func (s *StreamLogDataStore) StartingAddress() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startingAddress
}

// UpdateStartingAddress ignores values that would move the trim mark backwards.
func (s *StreamLogDataStore) UpdateStartingAddress(address int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startingAddress >= address {
		util.Debug("starting address %d not ahead of current %d, ignoring", address, s.startingAddress)
		return nil
	}
	if err := storeInt64(s.store, StartingAddressRecord, address); err != nil {
		return err
	}
	s.startingAddress = address
	return nil
}

func (s *StreamLogDataStore) ResetTailSegment() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	util.Info("reset tail segment, current segment %d", s.tailSegment)
	if err := storeInt64(s.store, TailSegmentRecord, 0); err != nil {
		return err
	}
	s.tailSegment = 0
	return nil
}

func (s *StreamLogDataStore) ResetStartingAddress() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	util.Info("reset starting address, current address %d", s.startingAddress)
	if err := storeInt64(s.store, StartingAddressRecord, 0); err != nil {
		return err
	}
	s.startingAddress = 0
	return nil
}

func loadInt64(store DataStore, record KvRecord) (int64, error) {
	val, err := store.Get(record)
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", record, err)
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("malformed value for %s: %d bytes", record, len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

func storeInt64(store DataStore, record KvRecord, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	if err := store.Put(record, buf[:]); err != nil {
		return fmt.Errorf("failed to store %s: %w", record, err)
	}
	return nil
}
