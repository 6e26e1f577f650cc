package disk

import "sync"

// segmentLocks hands out one exclusive writer lock per segment number. Entries
// are reference counted and dropped once no goroutine holds or waits for them.
type segmentLocks struct {
	mu    sync.Mutex
	locks map[int64]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newSegmentLocks() *segmentLocks {
	return &segmentLocks{locks: make(map[int64]*refLock)}
}

// acquireWrite blocks until the segment's exclusive lock is held and returns its release func.
func (s *segmentLocks) acquireWrite(segment int64) func() {
	l := s.ref(segment)
	l.Lock()
	return func() {
		l.Unlock()
		s.unref(segment, l)
	}
}

func (s *segmentLocks) ref(segment int64) *refLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[segment]
	if !ok {
		l = &refLock{}
		s.locks[segment] = l
	}
	l.refs++
	return l
}

func (s *segmentLocks) unref(segment int64, l *refLock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, segment)
	}
}

func (s *segmentLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
