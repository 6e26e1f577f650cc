package bench

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/downfa11-org/logunit/pkg/types"
)

type BenchmarkRunner struct {
	Storage          types.LogStorage
	NumWriters       int
	EntriesPerWriter int
	BatchSize        int
	PayloadSize      int
	ReadBack         bool
}

// Result summarizes one run.
type Result struct {
	Entries  int64
	Bytes    int64
	Errors   int64
	Duration time.Duration
}

func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Entries) / r.Duration.Seconds()
}

func NewBenchmarkRunner(storage types.LogStorage, writers, entries, batch, payload int, readBack bool) *BenchmarkRunner {
	return &BenchmarkRunner{
		Storage:          storage,
		NumWriters:       writers,
		EntriesPerWriter: entries,
		BatchSize:        max(batch, 1),
		PayloadSize:      payload,
		ReadBack:         readBack,
	}
}

// Run starts the writers and blocks until all of them are done. Addresses are
// handed out from a shared counter that starts after the current global tail.
func (b *BenchmarkRunner) Run() Result {
	var sequencer atomic.Int64
	sequencer.Store(max(b.Storage.GetTails().GlobalTail+1, b.Storage.GetTrimMark()))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result Result
	)
	start := time.Now()
	for i := 0; i < b.NumWriters; i++ {
		wg.Add(1)
		go func(wid int) {
			defer wg.Done()
			w := &BenchWriter{
				ID:          wid,
				Storage:     b.Storage,
				Sequencer:   &sequencer,
				NumEntries:  b.EntriesPerWriter,
				BatchSize:   b.BatchSize,
				PayloadSize: b.PayloadSize,
				ReadBack:    b.ReadBack,
			}
			stats := w.Run()

			mu.Lock()
			result.Entries += stats.Entries
			result.Bytes += stats.Bytes
			result.Errors += stats.Errors
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	result.Duration = time.Since(start)
	return result
}

func (b *BenchmarkRunner) Print(w io.Writer, r Result) {
	fmt.Fprintf(w, "\n🧪 BENCHMARK RESULT [logunit] 🧪\n")
	fmt.Fprintf(w, "-------------------------------------\n")
	fmt.Fprintf(w, " Writers       : %d\n", b.NumWriters)
	fmt.Fprintf(w, " Batch Size    : %d\n", b.BatchSize)
	fmt.Fprintf(w, " Payload Size  : %d\n", b.PayloadSize)
	fmt.Fprintf(w, " Total Entries : %d\n", r.Entries)
	fmt.Fprintf(w, " Errors        : %d\n", r.Errors)
	fmt.Fprintf(w, " Duration      : %v\n", r.Duration)
	fmt.Fprintf(w, " Throughput    : %.2f entries/sec\n", r.Throughput())
	fmt.Fprintf(w, "-------------------------------------\n")
}
