package datastore

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/downfa11-org/logunit/util"
)

type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble creates or opens a pebble database under dir. Every write is synced.
func OpenPebble(dir string) (*PebbleStore, error) {
	if dir == "" {
		return nil, errors.New("datastore: pebble directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create datastore directory %s: %w", dir, err)
	}

	db, err := pebble.Open(dir, &pebble.Options{Logger: pebbleLogger{}})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(record KvRecord) ([]byte, error) {
	val, closer, err := s.db.Get([]byte(record.FullKey()))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			util.Error("pebble: failed to release value for %s: %v", record, err)
		}
	}()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *PebbleStore) Put(record KvRecord, value []byte) error {
	return s.db.Set([]byte(record.FullKey()), value, pebble.Sync)
}

func (s *PebbleStore) Delete(record KvRecord) error {
	return s.db.Delete([]byte(record.FullKey()), pebble.Sync)
}

func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pebbleLogger routes pebble's internal logging through the process logger.
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{})  { util.Debug("pebble: "+format, args...) }
func (pebbleLogger) Errorf(format string, args ...interface{}) { util.Error("pebble: "+format, args...) }
func (pebbleLogger) Fatalf(format string, args ...interface{}) { util.Fatal("pebble: "+format, args...) }
