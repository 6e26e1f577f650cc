package disk

import (
	"errors"
	"fmt"
	"time"

	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/util"
)

func (sl *StreamLog) markForSync(h *SegmentHandle) {
	sl.syncMu.Lock()
	defer sl.syncMu.Unlock()
	sl.toSync[h] = struct{}{}
}

func (sl *StreamLog) forgetSyncUpTo(endSegment int64) {
	sl.syncMu.Lock()
	defer sl.syncMu.Unlock()
	for h := range sl.toSync {
		if h.segment <= endSegment {
			delete(sl.toSync, h)
		}
	}
}

// Sync flushes every segment written since the last sync when force is set, then
// clears the tracking set. Segments that fail to sync stay tracked.
func (sl *StreamLog) Sync(force bool) error {
	if err := sl.checkOpen(); err != nil {
		return err
	}
	sl.syncMu.Lock()
	defer sl.syncMu.Unlock()

	if !force {
		clear(sl.toSync)
		return nil
	}

	start := time.Now()
	var errs []error
	synced := 0
	for h := range sl.toSync {
		if h.isClosed() {
			delete(sl.toSync, h)
			continue
		}
		if err := h.writeFile.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", h.path, err))
			continue
		}
		delete(sl.toSync, h)
		synced++
	}
	metrics.SyncLatency.Observe(time.Since(start).Seconds())
	util.Debug("sync'd %d segments", synced)
	return errors.Join(errs...)
}

// Close closes every segment handle. No further operations are valid afterwards.
func (sl *StreamLog) Close() error {
	if !sl.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := sl.segments.closeAll()

	sl.syncMu.Lock()
	clear(sl.toSync)
	sl.syncMu.Unlock()

	sl.cache.Close()
	return err
}
