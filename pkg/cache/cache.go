package cache

import (
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
)

// Entry is a cached payload together with the file offset it was read from.
// A ranked overwrite moves an address to a new offset, so callers compare
// Offset against the current location before trusting Payload.
//
// Generation is the cache generation observed before the payload was read.
// Entries from an older generation are never returned.
type Entry struct {
	Offset     int64
	Generation uint64
	Payload    []byte
}

// ReadCache keeps recently read entry payloads keyed by global address.
// A nil *ReadCache is valid and caches nothing.
type ReadCache struct {
	c   *ristretto.Cache[int64, Entry]
	gen atomic.Uint64
}

// New returns a cache bounded to maxCost payload bytes, or nil when maxCost <= 0.
func New(maxCost int64) (*ReadCache, error) {
	if maxCost <= 0 {
		return nil, nil
	}

	// ristretto recommends ~10x counters per expected item; assume 1KB entries.
	counters := maxCost / 1024 * 10
	if counters < 1000 {
		counters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config[int64, Entry]{
		NumCounters: counters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ReadCache{c: c}, nil
}

func (rc *ReadCache) Get(address int64) (Entry, bool) {
	if rc == nil {
		return Entry{}, false
	}
	e, ok := rc.c.Get(address)
	if !ok || e.Generation != rc.gen.Load() {
		return Entry{}, false
	}
	return e, true
}

// Generation must be read before the payload is loaded from disk and stored
// in the Entry passed to Put.
func (rc *ReadCache) Generation() uint64 {
	if rc == nil {
		return 0
	}
	return rc.gen.Load()
}

// Put admits the payload asynchronously; admission may be refused under pressure.
func (rc *ReadCache) Put(address int64, e Entry) {
	if rc == nil {
		return
	}
	rc.c.Set(address, e, int64(len(e.Payload)))
}

func (rc *ReadCache) Invalidate(address int64) {
	if rc == nil {
		return
	}
	rc.c.Del(address)
}

// Clear drops every entry and starts a new generation, so a Put racing with
// Clear cannot resurrect a payload read before it.
func (rc *ReadCache) Clear() {
	if rc == nil {
		return
	}
	rc.gen.Add(1)
	rc.c.Clear()
}

// Wait blocks until buffered writes are applied.
func (rc *ReadCache) Wait() {
	if rc == nil {
		return
	}
	rc.c.Wait()
}

func (rc *ReadCache) Close() {
	if rc == nil {
		return
	}
	rc.c.Close()
}
