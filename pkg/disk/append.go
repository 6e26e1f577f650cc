package disk

import (
	"fmt"

	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/pkg/record"
	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
)

// Append writes entry at address. An occupied address is rejected unless the
// entry carries a rank that outranks the stored value.
func (sl *StreamLog) Append(address int64, entry *types.LogData) error {
	if err := sl.checkOpen(); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("append %d: nil entry", address)
	}
	if sl.isTrimmed(address) {
		return sl.overwrite(address, types.CauseTrim)
	}
	if entry.GlobalAddress != address {
		cp := *entry
		cp.GlobalAddress = address
		entry = &cp
	}

	segment := sl.segmentOf(address)
	h, err := sl.segments.acquire(segment)
	if err != nil {
		return err
	}
	defer h.release()

	unlock := sl.locks.acquireWrite(segment)
	defer unlock()

	if h.occupied(address) {
		if entry.Rank == nil {
			return sl.overwrite(address, sl.overwriteCause(h, address, entry))
		}
		if err := sl.assertAppendPermitted(h, address, entry); err != nil {
			return err
		}
	}

	if err := sl.writeRecord(h, address, entry); err != nil {
		util.Error("Disk_write[%d]: %v", address, err)
		return fmt.Errorf("append %d: %w", address, err)
	}
	util.Debug("Disk_write[%d]: written to disk", address)
	return nil
}

// AppendRange writes strictly sequential entries spanning at most two segments.
// Trimmed entries advance the trim mark instead of being written; entries below
// the trim mark and addresses already written are skipped.
func (sl *StreamLog) AppendRange(entries []*types.LogData) error {
	if err := sl.checkOpen(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if err := sl.validateRange(entries); err != nil {
		return err
	}

	pending, err := sl.preprocess(entries)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		util.Info("no entries to write")
		return nil
	}

	firstSegment := sl.segmentOf(pending[0].GlobalAddress)
	var groups [2][]*types.LogData
	for _, e := range pending {
		idx := 0
		if sl.segmentOf(e.GlobalAddress) != firstSegment {
			idx = 1
		}
		groups[idx] = append(groups[idx], e)
	}

	for i, group := range groups {
		if len(group) == 0 {
			continue
		}
		if err := sl.appendSegmentBatch(firstSegment+int64(i), group); err != nil {
			first, last := pending[0].GlobalAddress, pending[len(pending)-1].GlobalAddress
			util.Error("Disk_write[%d-%d]: %v", first, last, err)
			return fmt.Errorf("append range [%d, %d]: %w", first, last, err)
		}
	}
	return nil
}

func (sl *StreamLog) appendSegmentBatch(segment int64, entries []*types.LogData) error {
	h, err := sl.segments.acquire(segment)
	if err != nil {
		return err
	}
	defer h.release()

	unlock := sl.locks.acquireWrite(segment)
	defer unlock()

	fresh := entries[:0:0]
	for _, e := range entries {
		if !h.occupied(e.GlobalAddress) {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	return sl.writeRecords(h, fresh)
}

func (sl *StreamLog) validateRange(entries []*types.LogData) error {
	first := entries[0].GlobalAddress
	for i, e := range entries {
		if e == nil || e.GlobalAddress != first+int64(i) {
			return fmt.Errorf("%w: addresses must be sequential starting at %d", types.ErrWriteRangeTooLarge, first)
		}
	}
	last := entries[len(entries)-1].GlobalAddress
	if sl.segmentOf(last)-sl.segmentOf(first) > 1 {
		return fmt.Errorf("%w: [%d, %d] spans more than two segments", types.ErrWriteRangeTooLarge, first, last)
	}
	return nil
}

func (sl *StreamLog) preprocess(entries []*types.LogData) ([]*types.LogData, error) {
	processed := make([]*types.LogData, 0, len(entries))
	for _, e := range entries {
		if e.IsTrimmed() {
			// the trim mark already covers trimmed entries, nothing to write
			if err := sl.PrefixTrim(e.GlobalAddress); err != nil {
				return nil, err
			}
			continue
		}
		// a prefix trim raced ahead of this batch
		if sl.isTrimmed(e.GlobalAddress) {
			continue
		}
		processed = append(processed, e)
	}
	return processed, nil
}

// writeRecord frames and appends one entry. The caller holds the segment write lock.
// Once the bytes are on disk the address is known to the segment, even if
// persisting the tail fails afterwards, so a retry cannot append a duplicate.
func (sl *StreamLog) writeRecord(h *SegmentHandle, address int64, entry *types.LogData) error {
	m, buf := record.EncodeEntry(address, entry)
	offset := h.writeOffset + record.MetadataSize

	if err := safeWrite(h, buf); err != nil {
		return err
	}
	h.putKnown(address, types.AddressMetaData{PayloadChecksum: m.PayloadChecksum, Length: m.Length, Offset: offset})
	sl.cache.Invalidate(address)
	sl.markForSync(h)
	sl.meta.Load().Update(entry)
	metrics.ObserveAppend(1, len(buf))

	return sl.syncTailSegment(address)
}

// writeRecords appends all entries with a single write. The caller holds the segment write lock.
func (sl *StreamLog) writeRecords(h *SegmentHandle, entries []*types.LogData) error {
	mds := make(map[int64]types.AddressMetaData, len(entries))
	var buf []byte

	for _, e := range entries {
		m, frame := record.EncodeEntry(e.GlobalAddress, e)
		mds[e.GlobalAddress] = types.AddressMetaData{
			PayloadChecksum: m.PayloadChecksum,
			Length:          m.Length,
			Offset:          h.writeOffset + int64(len(buf)) + record.MetadataSize,
		}
		buf = append(buf, frame...)
	}

	if err := safeWrite(h, buf); err != nil {
		return err
	}
	h.putKnownBatch(mds)
	for address := range mds {
		sl.cache.Invalidate(address)
	}
	sl.markForSync(h)
	sl.meta.Load().UpdateBatch(entries)
	metrics.ObserveAppend(len(entries), len(buf))

	return sl.syncTailSegment(entries[len(entries)-1].GlobalAddress)
}

func (sl *StreamLog) overwrite(address int64, cause types.OverwriteCause) error {
	metrics.ObserveOverwrite(cause.String())
	util.Debug("Disk_write[%d]: overwritten exception, cause: %s", address, cause)
	return &types.OverwriteError{Address: address, Cause: cause}
}

func (sl *StreamLog) overwriteCause(h *SegmentHandle, address int64, entry *types.LogData) types.OverwriteCause {
	if h.trimmed(address) {
		return types.CauseTrim
	}
	existing, err := sl.readEntry(h, address)
	if err != nil || existing == nil {
		return types.CauseDiffData
	}
	switch {
	case existing.IsTrimmed():
		return types.CauseTrim
	case existing.IsHole():
		return types.CauseHole
	case existing.SameData(entry):
		return types.CauseSameData
	default:
		return types.CauseDiffData
	}
}

// assertAppendPermitted arbitrates a ranked write over an occupied address.
func (sl *StreamLog) assertAppendPermitted(h *SegmentHandle, address int64, entry *types.LogData) error {
	if h.trimmed(address) {
		return sl.overwrite(address, types.CauseTrim)
	}
	existing, err := sl.readEntry(h, address)
	if err != nil {
		return err
	}
	if existing == nil || existing.Type == types.DataTypeEmpty {
		return nil
	}

	if existing.Rank == nil {
		return fmt.Errorf("%w: address %d holds an unranked value", types.ErrDataOutranked, address)
	}
	if entry.Rank.Compare(*existing.Rank) <= 0 {
		return fmt.Errorf("%w: address %d rank %d <= %d", types.ErrDataOutranked, address, entry.Rank.Rank, existing.Rank.Rank)
	}
	if entry.Type == types.DataTypeRankOnly && existing.Type != types.DataTypeRankOnly {
		return &types.ValueAdoptedError{Address: address, Existing: existing}
	}
	return nil
}
