package logmeta

import (
	"fmt"
	"sync"

	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/google/uuid"
)

// LogMetadata folds observed entries into the global tail and the tail of every stream.
// It is rebuilt from segment files on startup and never persisted on its own.
type LogMetadata struct {
	mu          sync.RWMutex
	globalTail  int64
	streamTails map[uuid.UUID]int64
}

func New() *LogMetadata {
	return &LogMetadata{
		globalTail:  types.NonAddress,
		streamTails: make(map[uuid.UUID]int64),
	}
}

// Update folds a single entry. Tails only move forward.
func (lm *LogMetadata) Update(entry *types.LogData) {
	if entry == nil {
		return
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.foldLocked(entry)
}

func (lm *LogMetadata) UpdateBatch(entries []*types.LogData) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, entry := range entries {
		if entry != nil {
			lm.foldLocked(entry)
		}
	}
}

func (lm *LogMetadata) UpdateGlobalTail(address int64) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if address > lm.globalTail {
		lm.globalTail = address
	}
}

func (lm *LogMetadata) foldLocked(entry *types.LogData) {
	address := entry.GlobalAddress
	if address > lm.globalTail {
		lm.globalTail = address
	}
	for stream := range entry.Backpointers {
		if tail, ok := lm.streamTails[stream]; !ok || address > tail {
			lm.streamTails[stream] = address
		}
	}
}

func (lm *LogMetadata) GlobalTail() int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.globalTail
}

// StreamTail returns the tail of a single stream, or NonAddress when the stream was never seen.
func (lm *LogMetadata) StreamTail(stream uuid.UUID) int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if tail, ok := lm.streamTails[stream]; ok {
		return tail
	}
	return types.NonAddress
}

// StreamTails returns a copy so callers never share the internal map.
func (lm *LogMetadata) StreamTails() map[uuid.UUID]int64 {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	tails := make(map[uuid.UUID]int64, len(lm.streamTails))
	for stream, tail := range lm.streamTails {
		tails[stream] = tail
	}
	return tails
}

func (lm *LogMetadata) Tails() types.TailsResponse {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	tails := make(map[uuid.UUID]int64, len(lm.streamTails))
	for stream, tail := range lm.streamTails {
		tails[stream] = tail
	}
	return types.TailsResponse{GlobalTail: lm.globalTail, StreamTails: tails}
}

func (lm *LogMetadata) String() string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return fmt.Sprintf("LogMetadata(globalTail=%d, streams=%d)", lm.globalTail, len(lm.streamTails))
}
