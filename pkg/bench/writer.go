package bench

import (
	"bytes"
	"sync/atomic"

	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
	"github.com/google/uuid"
)

// BenchWriter appends NumEntries entries on its own stream, BatchSize at a time.
type BenchWriter struct {
	ID          int
	Storage     types.LogStorage
	Sequencer   *atomic.Int64
	NumEntries  int
	BatchSize   int
	PayloadSize int
	ReadBack    bool
}

type writerStats struct {
	Entries int64
	Bytes   int64
	Errors  int64
}

func (w *BenchWriter) Run() writerStats {
	var stats writerStats
	stream := uuid.New()
	payload := bytes.Repeat([]byte{byte('a' + w.ID%26)}, w.PayloadSize)
	prev := types.NonAddress

	for written := 0; written < w.NumEntries; {
		n := min(w.BatchSize, w.NumEntries-written)
		first := w.Sequencer.Add(int64(n)) - int64(n)

		entries := make([]*types.LogData, n)
		for i := range entries {
			address := first + int64(i)
			entries[i] = types.NewData(address, payload, map[uuid.UUID]int64{stream: prev})
			prev = address
		}

		var err error
		if n == 1 {
			err = w.Storage.Append(first, entries[0])
		} else {
			err = w.Storage.AppendRange(entries)
		}
		written += n

		if err != nil {
			util.Warn("writer %d: append at %d failed: %v", w.ID, first, err)
			stats.Errors++
			continue
		}
		stats.Entries += int64(n)
		stats.Bytes += int64(n * w.PayloadSize)

		if w.ReadBack {
			w.verify(entries, &stats)
		}
	}
	return stats
}

func (w *BenchWriter) verify(entries []*types.LogData, stats *writerStats) {
	for _, e := range entries {
		got, err := w.Storage.Read(e.GlobalAddress)
		if err != nil || got == nil || !bytes.Equal(got.Data, e.Data) {
			util.Warn("writer %d: read back of %d failed: %v", w.ID, e.GlobalAddress, err)
			stats.Errors++
		}
	}
}
