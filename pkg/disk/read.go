package disk

import (
	"fmt"

	"github.com/downfa11-org/logunit/pkg/cache"
	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/pkg/record"
	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
)

// Read returns the entry at address. Trimmed addresses yield a Trimmed entry and
// a nil error; an address with no record yields (nil, nil).
func (sl *StreamLog) Read(address int64) (*types.LogData, error) {
	if err := sl.checkOpen(); err != nil {
		return nil, err
	}
	if sl.isTrimmed(address) {
		metrics.ObserveRead("trimmed")
		return types.NewTrimmed(address), nil
	}

	h, err := sl.segments.acquire(sl.segmentOf(address))
	if err != nil {
		return nil, err
	}
	defer h.release()

	if h.trimmed(address) {
		metrics.ObserveRead("trimmed")
		return types.NewTrimmed(address), nil
	}

	entry, err := sl.readEntry(h, address)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		metrics.ObserveRead("empty")
		return nil, nil
	}
	metrics.ObserveRead("data")
	return entry, nil
}

// readEntry loads and decodes the record of address from h, or returns nil when
// the segment holds no such address.
func (sl *StreamLog) readEntry(h *SegmentHandle, address int64) (*types.LogData, error) {
	gen := sl.cache.Generation()
	md, ok := h.known(address)
	if !ok {
		return nil, nil
	}

	if cached, ok := sl.cache.Get(address); ok && cached.Offset == md.Offset {
		metrics.ObserveRead("cached")
		return record.UnmarshalEntry(cached.Payload)
	}

	payload := make([]byte, md.Length)
	if _, err := h.readFile.ReadAt(payload, md.Offset); err != nil {
		return nil, fmt.Errorf("read address %d from %s: %w", address, h.path, err)
	}
	if sl.verify && util.Checksum(payload) != md.PayloadChecksum {
		return nil, fmt.Errorf("%w: checksum mismatch for address %d in %s", types.ErrDataCorruption, address, h.path)
	}

	entry, err := record.UnmarshalEntry(payload)
	if err != nil {
		return nil, fmt.Errorf("address %d: %w", address, err)
	}
	sl.cache.Put(address, cache.Entry{Offset: md.Offset, Generation: gen, Payload: payload})
	return entry, nil
}
