package disk

import (
	"errors"
	"sort"
	"sync"

	"github.com/downfa11-org/logunit/util"
)

// segmentTable maps segment numbers to open handles. The first goroutine to ask
// for a segment opens and recovers it; concurrent callers wait on the same entry.
type segmentTable struct {
	mu      sync.Mutex
	entries map[int64]*segmentEntry
	open    func(segment int64) (*SegmentHandle, error)
}

type segmentEntry struct {
	once   sync.Once
	done   chan struct{}
	handle *SegmentHandle
	err    error
}

func newSegmentTable(open func(segment int64) (*SegmentHandle, error)) *segmentTable {
	return &segmentTable{
		entries: make(map[int64]*segmentEntry),
		open:    open,
	}
}

// acquire returns the retained handle for segment, opening it on first use.
// Callers must pair every successful acquire with release.
func (t *segmentTable) acquire(segment int64) (*SegmentHandle, error) {
	for {
		t.mu.Lock()
		e, ok := t.entries[segment]
		if !ok {
			e = &segmentEntry{done: make(chan struct{})}
			t.entries[segment] = e
		}
		t.mu.Unlock()

		e.once.Do(func() {
			e.handle, e.err = t.open(segment)
			close(e.done)
		})

		if e.err != nil {
			t.forget(segment, e)
			return nil, e.err
		}

		e.handle.retain()
		if !e.handle.isClosed() {
			return e.handle, nil
		}
		// closed by compaction or reset between lookup and retain
		e.handle.release()
		t.forget(segment, e)
	}
}

func (t *segmentTable) forget(segment int64, e *segmentEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[segment] == e {
		delete(t.entries, segment)
	}
}

// handles returns the opened handles ordered by segment.
func (t *segmentTable) handles() []*SegmentHandle {
	t.mu.Lock()
	entries := make([]*segmentEntry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.Unlock()

	hs := make([]*SegmentHandle, 0, len(entries))
	for _, e := range entries {
		// waits for an in-flight open so its handle is not missed
		<-e.done
		if e.handle != nil {
			hs = append(hs, e.handle)
		}
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].segment < hs[j].segment })
	return hs
}

// closeUpTo closes and forgets every handle whose segment is <= endSegment.
// A handle still retained by a caller is closed anyway and reported.
func (t *segmentTable) closeUpTo(endSegment int64) error {
	var errs []error
	for _, h := range t.handles() {
		if h.segment > endSegment {
			continue
		}
		if refs := h.RefCount(); refs != 0 {
			util.Warn("segment %d is trimmed, but refCount is %d, closing anyway", h.segment, refs)
		}
		if err := h.close(); err != nil {
			util.Error("failed to close segment %d: %v", h.segment, err)
			errs = append(errs, err)
		}

		t.mu.Lock()
		if e, ok := t.entries[h.segment]; ok && e.handle == h {
			delete(t.entries, h.segment)
		}
		t.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (t *segmentTable) closeAll() error {
	return t.closeUpTo(maxSegment)
}

func (t *segmentTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
