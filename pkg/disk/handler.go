package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
)

// SegmentHandle owns the open files of one segment and the addresses known to live in it.
//
// writeOffset is only touched under the segment write lock. The address sets are
// guarded by mu because readers consult them without taking the segment lock.
type SegmentHandle struct {
	segment int64
	path    string

	writeFile   *os.File
	readFile    *os.File
	writeOffset int64

	mu               sync.RWMutex
	knownAddresses   map[int64]types.AddressMetaData
	trimmedAddresses map[int64]struct{}
	pendingTrims     map[int64]struct{}

	refCount atomic.Int32
	closed   atomic.Bool
}

// openSegmentHandle opens the write and read files of a segment. A newly created
// file forces a sync of its directory so that the file itself survives a crash.
func openSegmentHandle(dir string, segment int64) (*SegmentHandle, error) {
	path := segmentPath(dir, segment)

	writeFile, created, err := openWriteFile(path)
	if err != nil {
		return nil, err
	}
	if created {
		if err := syncDir(dir); err != nil {
			closeQuietly(writeFile)
			return nil, fmt.Errorf("failed to sync directory %s: %w", dir, err)
		}
	}

	readFile, err := os.Open(path)
	if err != nil {
		closeQuietly(writeFile)
		return nil, fmt.Errorf("failed to open %s for read: %w", path, err)
	}
	adviseRandom(readFile)

	metrics.OpenSegments.Inc()
	return &SegmentHandle{
		segment:          segment,
		path:             path,
		writeFile:        writeFile,
		readFile:         readFile,
		knownAddresses:   make(map[int64]types.AddressMetaData),
		trimmedAddresses: make(map[int64]struct{}),
		pendingTrims:     make(map[int64]struct{}),
	}, nil
}

func openWriteFile(path string) (*os.File, bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return nil, false, fmt.Errorf("failed to create %s: %w", path, err)
	}

	f, err = os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, false, nil
}

func segmentPath(dir string, segment int64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.log", segment))
}

func (h *SegmentHandle) retain() {
	h.refCount.Add(1)
}

func (h *SegmentHandle) release() {
	if h.refCount.Add(-1) < 0 {
		util.Warn("segment %d released more often than retained", h.segment)
	}
}

// close syncs and closes both files. It is safe to call more than once.
func (h *SegmentHandle) close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	metrics.OpenSegments.Dec()

	var errs []error
	if err := h.writeFile.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync %s: %w", h.path, err))
	}
	if err := h.writeFile.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", h.path, err))
	}
	if err := h.readFile.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reader %s: %w", h.path, err))
	}
	return errors.Join(errs...)
}

func closeQuietly(f *os.File) {
	if err := f.Close(); err != nil {
		util.Error("failed to close %s: %v", f.Name(), err)
	}
}
