package disk

import (
	"sort"

	"github.com/downfa11-org/logunit/pkg/types"
)

func (h *SegmentHandle) Segment() int64 {
	return h.segment
}

func (h *SegmentHandle) Path() string {
	return h.path
}

func (h *SegmentHandle) RefCount() int32 {
	return h.refCount.Load()
}

func (h *SegmentHandle) isClosed() bool {
	return h.closed.Load()
}

func (h *SegmentHandle) known(address int64) (types.AddressMetaData, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	md, ok := h.knownAddresses[address]
	return md, ok
}

func (h *SegmentHandle) putKnown(address int64, md types.AddressMetaData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.knownAddresses[address] = md
}

func (h *SegmentHandle) putKnownBatch(mds map[int64]types.AddressMetaData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for address, md := range mds {
		h.knownAddresses[address] = md
	}
}

// occupied reports whether the address was written or trimmed in this segment.
func (h *SegmentHandle) occupied(address int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.knownAddresses[address]; ok {
		return true
	}
	if _, ok := h.trimmedAddresses[address]; ok {
		return true
	}
	_, ok := h.pendingTrims[address]
	return ok
}

func (h *SegmentHandle) trimmed(address int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.pendingTrims[address]; ok {
		return true
	}
	_, ok := h.trimmedAddresses[address]
	return ok
}

func (h *SegmentHandle) addPendingTrim(address int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pendingTrims[address] = struct{}{}
}

// promotePendingTrims moves every pending trim to the trimmed set and returns how many moved.
func (h *SegmentHandle) promotePendingTrims() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.pendingTrims)
	for address := range h.pendingTrims {
		h.trimmedAddresses[address] = struct{}{}
	}
	h.pendingTrims = make(map[int64]struct{})
	return n
}

// KnownAddresses returns the written addresses in ascending order.
func (h *SegmentHandle) KnownAddresses() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	addrs := make([]int64, 0, len(h.knownAddresses))
	for address := range h.knownAddresses {
		addrs = append(addrs, address)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}
