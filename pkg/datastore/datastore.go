package datastore

import "errors"

// ErrKeyNotFound is returned by Get when the record was never written or was deleted.
var ErrKeyNotFound = errors.New("datastore: key not found")

// KvRecord names a value by namespace (prefix) and key.
type KvRecord struct {
	Prefix string
	Key    string
}

func NewKvRecord(prefix, key string) KvRecord {
	return KvRecord{Prefix: prefix, Key: key}
}

// FullKey is the flat key stored in the backend: prefix_key.
func (r KvRecord) FullKey() string {
	return r.Prefix + "_" + r.Key
}

func (r KvRecord) String() string {
	return r.FullKey()
}

// DataStore is a small synchronous key-value store for node-local scalars.
type DataStore interface {
	Get(record KvRecord) ([]byte, error)
	Put(record KvRecord, value []byte) error
	Delete(record KvRecord) error
	Close() error
}
