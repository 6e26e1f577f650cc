package disk

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/downfa11-org/logunit/pkg/cache"
	"github.com/downfa11-org/logunit/pkg/config"
	"github.com/downfa11-org/logunit/pkg/datastore"
	"github.com/downfa11-org/logunit/pkg/logmeta"
	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
)

const maxSegment int64 = math.MaxInt64

// StreamLog is the segmented on-disk log of one log unit.
//
// Addresses map to segment files of RecordsPerSegment addresses each. Writers to
// the same segment are serialized by the segment lock; readers only retain the
// handle. The starting address and tail segment live in the StreamLogDataStore.
type StreamLog struct {
	logDir            string
	verify            bool
	recordsPerSegment int64

	dataStore *datastore.StreamLogDataStore
	segments  *segmentTable
	locks     *segmentLocks
	meta      atomic.Pointer[logmeta.LogMetadata]
	cache     *cache.ReadCache

	syncMu sync.Mutex
	toSync map[*SegmentHandle]struct{}

	// serializes compact and reset
	maintMu sync.Mutex
	closed  atomic.Bool
}

var _ types.LogStorage = (*StreamLog)(nil)

func NewStreamLog(cfg *config.Config, ds *datastore.StreamLogDataStore) (*StreamLog, error) {
	if ds == nil {
		return nil, errors.New("stream log requires a datastore")
	}
	rps := cfg.RecordsPerSegment
	if rps <= 0 {
		rps = config.DefaultRecordsPerSegment
	}

	logDir := cfg.SegmentDir()
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	readCache, err := cache.New(cfg.ReadCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create read cache: %w", err)
	}

	sl := &StreamLog{
		logDir:            logDir,
		verify:            cfg.Verify(),
		recordsPerSegment: rps,
		dataStore:         ds,
		locks:             newSegmentLocks(),
		cache:             readCache,
		toSync:            make(map[*SegmentHandle]struct{}),
	}
	sl.segments = newSegmentTable(sl.openSegment)

	if err := VerifyLogs(logDir, sl.verify); err != nil {
		readCache.Close()
		return nil, err
	}

	start := ds.StartingAddress()
	meta, err := sl.initializeLogMetadata(start / rps)
	if err != nil {
		readCache.Close()
		return nil, err
	}
	sl.meta.Store(meta)

	// a prefix trim past every written address leaves the tail behind the trim mark,
	// a failed tail persist leaves the stored tail segment behind the data
	if tail := max(meta.GlobalTail(), start-1); tail >= 0 {
		if err := sl.syncTailSegment(tail); err != nil {
			readCache.Close()
			return nil, err
		}
	}

	metrics.ObserveTails(start, sl.meta.Load().GlobalTail())
	return sl, nil
}

func (sl *StreamLog) openSegment(segment int64) (*SegmentHandle, error) {
	h, err := openSegmentHandle(sl.logDir, segment)
	if err != nil {
		return nil, err
	}
	if err := readAddressSpace(h, sl.verify); err != nil {
		if cerr := h.close(); cerr != nil {
			util.Error("failed to close segment %d after recovery error: %v", segment, cerr)
		}
		return nil, err
	}
	return h, nil
}

// initializeLogMetadata folds every entry at or above the starting address found
// in segment files from startSegment on. Handles opened for the scan are closed.
func (sl *StreamLog) initializeLogMetadata(startSegment int64) (*logmeta.LogMetadata, error) {
	begin := time.Now()
	meta := logmeta.New()
	start := sl.dataStore.StartingAddress()

	files, err := listSegmentFiles(sl.logDir)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if f.segment < startSegment {
			continue
		}

		h, err := sl.segments.acquire(f.segment)
		if err != nil {
			_ = sl.segments.closeAll()
			return nil, err
		}
		for _, address := range h.KnownAddresses() {
			if address < start {
				continue
			}
			entry, err := sl.readEntry(h, address)
			if err != nil {
				h.release()
				_ = sl.segments.closeAll()
				return nil, err
			}
			meta.Update(entry)
		}
		h.release()
	}

	if err := sl.segments.closeAll(); err != nil {
		return nil, err
	}
	util.Info("initializeLogMetadata: took %s to load %s", time.Since(begin), meta)
	return meta, nil
}

func (sl *StreamLog) segmentOf(address int64) int64 {
	return address / sl.recordsPerSegment
}

func (sl *StreamLog) startingAddress() int64 {
	return sl.dataStore.StartingAddress()
}

func (sl *StreamLog) isTrimmed(address int64) bool {
	return address < sl.startingAddress()
}

// syncTailSegment advances the global tail and the persisted tail segment.
func (sl *StreamLog) syncTailSegment(address int64) error {
	sl.meta.Load().UpdateGlobalTail(address)
	if err := sl.dataStore.UpdateTailSegment(sl.segmentOf(address)); err != nil {
		return fmt.Errorf("failed to persist tail segment: %w", err)
	}
	return nil
}

func (sl *StreamLog) GetTrimMark() int64 {
	return sl.startingAddress()
}

func (sl *StreamLog) GetTails() types.TailsResponse {
	return sl.meta.Load().Tails()
}

// RecordsPerSegment is the number of addresses held by one segment file.
func (sl *StreamLog) RecordsPerSegment() int64 {
	return sl.recordsPerSegment
}

func (sl *StreamLog) LogDir() string {
	return sl.logDir
}

// SegmentHandles returns the currently open segment handles.
func (sl *StreamLog) SegmentHandles() []*SegmentHandle {
	return sl.segments.handles()
}

func (sl *StreamLog) checkOpen() error {
	if sl.closed.Load() {
		return types.ErrClosed
	}
	return nil
}
