package disk

import (
	"os"

	"github.com/downfa11-org/logunit/pkg/logmeta"
	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/util"
)

// PrefixTrim discards every address <= address. Repeated or regressive trims are ignored.
func (sl *StreamLog) PrefixTrim(address int64) error {
	if err := sl.checkOpen(); err != nil {
		return err
	}
	if sl.isTrimmed(address) {
		util.Warn("prefixTrim: ignoring repeated trim %d", address)
		return nil
	}

	newStart := address + 1
	if err := sl.dataStore.UpdateStartingAddress(newStart); err != nil {
		return err
	}
	if err := sl.syncTailSegment(address); err != nil {
		return err
	}
	metrics.ObserveTails(newStart, sl.meta.Load().GlobalTail())
	util.Debug("trimmed prefix, new starting address %d", newStart)
	return nil
}

// Trim marks a single address as trimmed. The mark is held in memory as a pending
// trim on the segment and becomes a trimmed address on the next Compact.
func (sl *StreamLog) Trim(address int64) error {
	if err := sl.checkOpen(); err != nil {
		return err
	}
	if sl.isTrimmed(address) {
		return nil
	}

	segment := sl.segmentOf(address)
	h, err := sl.segments.acquire(segment)
	if err != nil {
		return err
	}
	defer h.release()

	unlock := sl.locks.acquireWrite(segment)
	defer unlock()

	h.addPendingTrim(address)
	sl.cache.Invalidate(address)
	return nil
}

// Compact deletes the segment files that lie entirely below the segment holding
// the starting address. Their handles are closed first.
func (sl *StreamLog) Compact() error {
	if err := sl.checkOpen(); err != nil {
		return err
	}
	sl.maintMu.Lock()
	defer sl.maintMu.Unlock()

	promoted := 0
	for _, h := range sl.segments.handles() {
		promoted += h.promotePendingTrims()
	}
	if promoted > 0 {
		util.Debug("compact: promoted %d pending trims", promoted)
	}

	boundary := sl.segmentOf(sl.startingAddress())
	if boundary == 0 {
		util.Debug("compact: starting address is in the first segment, nothing to delete")
		return nil
	}
	endSegment := boundary - 1

	if err := sl.segments.closeUpTo(endSegment); err != nil {
		util.Warn("compact: %v", err)
	}
	sl.forgetSyncUpTo(endSegment)
	n, freed, err := sl.deleteSegmentFiles(endSegment)
	metrics.CompactedSegments.Add(float64(n))
	metrics.CompactedBytes.Add(float64(freed))
	util.Info("compact: completed, end segment %d, deleted %d files, freed %d bytes", endSegment, n, freed)
	return err
}

// Reset deletes every segment file and zeroes the persisted state.
// It is used to wipe a node's local log, never during normal operation.
func (sl *StreamLog) Reset() error {
	if err := sl.checkOpen(); err != nil {
		return err
	}
	sl.maintMu.Lock()
	defer sl.maintMu.Unlock()

	globalTail := sl.meta.Load().GlobalTail()
	util.Warn("reset: global tail %d, tail segment %d", globalTail, sl.dataStore.TailSegment())

	if err := sl.segments.closeAll(); err != nil {
		util.Warn("reset: %v", err)
	}
	sl.forgetSyncUpTo(maxSegment)
	// files past the tail segment exist when a read or a crashed write created them
	n, _, err := sl.deleteSegmentFiles(maxSegment)
	if err != nil {
		return err
	}

	if err := sl.dataStore.ResetStartingAddress(); err != nil {
		return err
	}
	if err := sl.dataStore.ResetTailSegment(); err != nil {
		return err
	}
	sl.meta.Store(logmeta.New())
	sl.cache.Clear()
	metrics.ObserveTails(0, sl.meta.Load().GlobalTail())

	util.Info("reset: completed, deleted %d files", n)
	return nil
}

// deleteSegmentFiles removes <segment>.log files with segment <= endSegment.
func (sl *StreamLog) deleteSegmentFiles(endSegment int64) (int, int64, error) {
	files, err := listSegmentFiles(sl.logDir)
	if err != nil {
		return 0, 0, err
	}

	var (
		n     int
		freed int64
	)
	for _, f := range files {
		if f.segment > endSegment {
			break
		}
		if err := os.Remove(f.path); err != nil {
			util.Error("couldn't delete file %s: %v", f.path, err)
			continue
		}
		n++
		freed += f.size
	}
	if n > 0 {
		if err := syncDir(sl.logDir); err != nil {
			util.Warn("failed to sync %s after delete: %v", sl.logDir, err)
		}
	}
	return n, freed, nil
}
