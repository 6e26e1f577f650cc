package disk_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/downfa11-org/logunit/pkg/config"
	"github.com/downfa11-org/logunit/pkg/datastore"
	"github.com/downfa11-org/logunit/pkg/disk"
	"github.com/downfa11-org/logunit/pkg/record"
	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLog struct {
	*disk.StreamLog
	dir   string
	store datastore.DataStore
	cfg   *config.Config
}

func openTestLog(t *testing.T, dir string, store datastore.DataStore, rps int64, mutate ...func(*config.Config)) (*testLog, error) {
	t.Helper()
	cfg := &config.Config{LogPath: dir, RecordsPerSegment: rps}
	for _, m := range mutate {
		m(cfg)
	}
	cfg.Normalize()

	ds, err := datastore.NewStreamLogDataStore(store)
	require.NoError(t, err)

	sl, err := disk.NewStreamLog(cfg, ds)
	if err != nil {
		return nil, err
	}
	return &testLog{StreamLog: sl, dir: dir, store: store, cfg: cfg}, nil
}

func newTestLog(t *testing.T, rps int64, mutate ...func(*config.Config)) *testLog {
	t.Helper()
	tl, err := openTestLog(t, t.TempDir(), datastore.NewInmem(), rps, mutate...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tl.Close() })
	return tl
}

// reopen closes the log and opens a new one over the same directory and store.
func (tl *testLog) reopen(t *testing.T) *testLog {
	t.Helper()
	require.NoError(t, tl.Close())
	next, err := openTestLog(t, tl.dir, tl.store, tl.cfg.RecordsPerSegment, func(c *config.Config) { *c = *tl.cfg })
	require.NoError(t, err)
	t.Cleanup(func() { _ = next.Close() })
	return next
}

func (tl *testLog) segmentFile(segment int64) string {
	return filepath.Join(tl.cfg.SegmentDir(), fmt.Sprintf("%d.log", segment))
}

// flakyStore fails every Put while fail is set.
type flakyStore struct {
	datastore.DataStore
	fail atomic.Bool
}

func (s *flakyStore) Put(record datastore.KvRecord, value []byte) error {
	if s.fail.Load() {
		return errors.New("datastore unavailable")
	}
	return s.DataStore.Put(record, value)
}

func data(address int64, payload string, streams ...uuid.UUID) *types.LogData {
	bps := make(map[uuid.UUID]int64, len(streams))
	for _, s := range streams {
		bps[s] = types.NonAddress
	}
	return types.NewData(address, []byte(payload), bps)
}

func dataRange(from, to int64) []*types.LogData {
	var entries []*types.LogData
	for a := from; a <= to; a++ {
		entries = append(entries, data(a, fmt.Sprintf("payload-%d", a)))
	}
	return entries
}

func TestAppendReadRoundTrip(t *testing.T) {
	tl := newTestLog(t, 10)

	stream := uuid.New()
	client := uuid.New()
	thread := int64(7)
	entry := &types.LogData{
		Type:         types.DataTypeData,
		Data:         []byte("hello world"),
		Backpointers: map[uuid.UUID]int64{stream: 3},
		Rank:         &types.DataRank{Rank: 1, ID: uuid.New()},
		ClientID:     &client,
		ThreadID:     &thread,
		Checkpoint: &types.CheckpointMetadata{
			Type:               types.CheckpointStart,
			ID:                 uuid.New(),
			StreamID:           stream,
			StreamStartAddress: 2,
		},
	}

	require.NoError(t, tl.Append(4, entry))

	got, err := tl.Read(4)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.GlobalAddress)
	assert.Equal(t, entry.Data, got.Data)
	assert.Equal(t, entry.Backpointers, got.Backpointers)
	assert.Equal(t, entry.Rank, got.Rank)
	assert.Equal(t, entry.ClientID, got.ClientID)
	assert.Equal(t, entry.ThreadID, got.ThreadID)
	assert.Equal(t, entry.Checkpoint, got.Checkpoint)
}

func TestReadWithCacheEnabled(t *testing.T) {
	tl := newTestLog(t, 10, func(c *config.Config) { c.ReadCacheSize = 1 << 20 })

	require.NoError(t, tl.Append(1, data(1, "cached")))
	for i := 0; i < 3; i++ {
		got, err := tl.Read(1)
		require.NoError(t, err)
		assert.Equal(t, []byte("cached"), got.Data)
	}
}

func TestTrimBoundary(t *testing.T) {
	tl := newTestLog(t, 10)

	got, err := tl.Read(5)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, tl.PrefixTrim(3))

	for a := int64(0); a <= 3; a++ {
		got, err := tl.Read(a)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsTrimmed(), "address %d", a)
	}

	got, err = tl.Read(4)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrefixTrimIsIdempotent(t *testing.T) {
	tl := newTestLog(t, 10)

	require.NoError(t, tl.PrefixTrim(8))
	assert.Equal(t, int64(9), tl.GetTrimMark())

	require.NoError(t, tl.PrefixTrim(8))
	assert.Equal(t, int64(9), tl.GetTrimMark())

	require.NoError(t, tl.PrefixTrim(2))
	assert.Equal(t, int64(9), tl.GetTrimMark())
}

func TestOverwriteRejection(t *testing.T) {
	tl := newTestLog(t, 10)
	s := uuid.New()

	require.NoError(t, tl.Append(1, data(1, "first", s)))

	tests := []struct {
		name  string
		entry *types.LogData
		cause types.OverwriteCause
	}{
		{"same data", data(1, "first", s), types.CauseSameData},
		{"different data", data(1, "second", s), types.CauseDiffData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tl.Append(1, tt.entry)
			require.ErrorIs(t, err, types.ErrOverwrite)
			cause, ok := types.OverwriteCauseOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.cause, cause)
		})
	}

	got, err := tl.Read(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got.Data)
}

func TestOverwriteHoleAndTrim(t *testing.T) {
	tl := newTestLog(t, 10)

	require.NoError(t, tl.Append(5, types.NewHole(5)))
	err := tl.Append(5, data(5, "late"))
	cause, ok := types.OverwriteCauseOf(err)
	require.True(t, ok)
	assert.Equal(t, types.CauseHole, cause)

	require.NoError(t, tl.PrefixTrim(6))
	err = tl.Append(6, data(6, "gone"))
	cause, ok = types.OverwriteCauseOf(err)
	require.True(t, ok)
	assert.Equal(t, types.CauseTrim, cause)
}

func TestMonotonicTail(t *testing.T) {
	tl := newTestLog(t, 10)
	s1, s2 := uuid.New(), uuid.New()

	assert.Equal(t, types.NonAddress, tl.GetTails().GlobalTail)

	require.NoError(t, tl.Append(7, data(7, "a", s1)))
	require.NoError(t, tl.Append(3, data(3, "b", s1, s2)))
	require.NoError(t, tl.Append(25, data(25, "c", s2)))
	require.NoError(t, tl.Append(12, data(12, "d", s1)))

	tails := tl.GetTails()
	assert.Equal(t, int64(25), tails.GlobalTail)
	assert.Equal(t, int64(12), tails.StreamTails[s1])
	assert.Equal(t, int64(25), tails.StreamTails[s2])
}

func TestSegmentBoundaryBatch(t *testing.T) {
	tl := newTestLog(t, 10)

	require.NoError(t, tl.AppendRange(dataRange(7, 13)))
	assert.Equal(t, int64(13), tl.GetTails().GlobalTail)

	first, err := disk.InspectSegment(tl.segmentFile(0), true)
	require.NoError(t, err)
	second, err := disk.InspectSegment(tl.segmentFile(1), true)
	require.NoError(t, err)

	addresses := func(r *disk.SegmentReport) []int64 {
		var out []int64
		for _, rec := range r.Records {
			out = append(out, rec.Entry.GlobalAddress)
		}
		return out
	}
	assert.Equal(t, []int64{7, 8, 9}, addresses(first))
	assert.Equal(t, []int64{10, 11, 12, 13}, addresses(second))

	for a := int64(7); a <= 13; a++ {
		got, err := tl.Read(a)
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("payload-%d", a)), got.Data)
	}
}

func TestAppendRangeValidation(t *testing.T) {
	tl := newTestLog(t, 10)

	gap := []*types.LogData{data(1, "a"), data(2, "b"), data(4, "c")}
	assert.ErrorIs(t, tl.AppendRange(gap), types.ErrWriteRangeTooLarge)

	assert.ErrorIs(t, tl.AppendRange(dataRange(8, 21)), types.ErrWriteRangeTooLarge)

	for _, a := range []int64{1, 2, 4, 8, 21} {
		got, err := tl.Read(a)
		require.NoError(t, err)
		assert.Nil(t, got, "address %d", a)
	}
	assert.Equal(t, types.NonAddress, tl.GetTails().GlobalTail)
}

func TestAppendRangeSkipsTrimmedAndWritten(t *testing.T) {
	tl := newTestLog(t, 10)

	require.NoError(t, tl.Append(4, data(4, "existing")))

	batch := []*types.LogData{types.NewTrimmed(2), data(3, "three"), data(4, "dup"), data(5, "five")}
	require.NoError(t, tl.AppendRange(batch))

	assert.Equal(t, int64(3), tl.GetTrimMark())

	got, err := tl.Read(2)
	require.NoError(t, err)
	assert.True(t, got.IsTrimmed())

	got, err = tl.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), got.Data)

	got, err = tl.Read(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("five"), got.Data)
}

func TestCrashTruncation(t *testing.T) {
	tl := newTestLog(t, 10)
	for a := int64(0); a < 3; a++ {
		require.NoError(t, tl.Append(a, data(a, "valid")))
	}
	require.NoError(t, tl.Sync(true))

	path := tl.segmentFile(0)
	info, err := os.Stat(path)
	require.NoError(t, err)
	validEnd := info.Size()

	_, torn := record.EncodeEntry(3, data(3, "torn"))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write(torn[:len(torn)-3])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tl = tl.reopen(t)

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, validEnd, info.Size())

	for a := int64(0); a < 3; a++ {
		got, err := tl.Read(a)
		require.NoError(t, err)
		assert.Equal(t, []byte("valid"), got.Data)
	}
	got, err := tl.Read(3)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, tl.Append(3, data(3, "retry")))
	got, err = tl.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("retry"), got.Data)
}

func TestPartialHeaderIsRewritten(t *testing.T) {
	dir := t.TempDir()
	segDir := filepath.Join(dir, "log")
	require.NoError(t, os.MkdirAll(segDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(segDir, "0.log"), []byte{0, 1, 2, 3, 4}, 0o644))

	tl, err := openTestLog(t, dir, datastore.NewInmem(), 10)
	require.NoError(t, err)
	defer func() { _ = tl.Close() }()

	info, err := os.Stat(filepath.Join(segDir, "0.log"))
	require.NoError(t, err)
	header := record.EncodeHeader(record.LogHeader{Version: record.Version, VerifyChecksum: true})
	assert.Equal(t, int64(len(header)), info.Size())

	require.NoError(t, tl.Append(0, data(0, "after")))
}

func TestVersionMismatchAbortsStartup(t *testing.T) {
	dir := t.TempDir()
	segDir := filepath.Join(dir, "log")
	require.NoError(t, os.MkdirAll(segDir, 0o755))
	header := record.EncodeHeader(record.LogHeader{Version: record.Version - 1, VerifyChecksum: true})
	require.NoError(t, os.WriteFile(filepath.Join(segDir, "0.log"), header, 0o644))

	_, err := openTestLog(t, dir, datastore.NewInmem(), 10)
	assert.ErrorIs(t, err, types.ErrLogVersionMismatch)
}

func TestChecksumModeMismatchAbortsStartup(t *testing.T) {
	dir := t.TempDir()
	store := datastore.NewInmem()

	tl, err := openTestLog(t, dir, store, 10, func(c *config.Config) { c.NoVerify = true })
	require.NoError(t, err)
	require.NoError(t, tl.Append(0, data(0, "x")))
	require.NoError(t, tl.Close())

	_, err = openTestLog(t, dir, store, 10)
	assert.ErrorIs(t, err, types.ErrChecksumModeMismatch)
}

func TestCorruptPayloadIsFatal(t *testing.T) {
	tl := newTestLog(t, 10)
	require.NoError(t, tl.Append(0, data(0, "intact payload")))
	require.NoError(t, tl.Close())

	path := tl.segmentFile(0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = openTestLog(t, tl.dir, tl.store, 10)
	assert.ErrorIs(t, err, types.ErrDataCorruption)
}

func TestCompactScenario(t *testing.T) {
	tl := newTestLog(t, 10)

	require.NoError(t, tl.AppendRange(dataRange(0, 9)))
	require.NoError(t, tl.AppendRange(dataRange(10, 14)))
	require.NoError(t, tl.PrefixTrim(12))
	require.NoError(t, tl.Compact())

	_, err := os.Stat(tl.segmentFile(0))
	assert.True(t, errors.Is(err, os.ErrNotExist), "segment 0 should be deleted")
	_, err = os.Stat(tl.segmentFile(1))
	assert.NoError(t, err, "segment 1 holds addresses above the trim mark")

	for _, a := range []int64{5, 10, 12} {
		got, err := tl.Read(a)
		require.NoError(t, err)
		assert.True(t, got.IsTrimmed(), "address %d", a)
	}
	for _, a := range []int64{13, 14} {
		got, err := tl.Read(a)
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("payload-%d", a)), got.Data)
	}

	for _, h := range tl.SegmentHandles() {
		assert.NotEqual(t, int64(0), h.Segment())
	}
}

func TestCompactWithinFirstSegmentKeepsFiles(t *testing.T) {
	tl := newTestLog(t, 10)

	require.NoError(t, tl.AppendRange(dataRange(0, 5)))
	require.NoError(t, tl.PrefixTrim(4))
	require.NoError(t, tl.Compact())

	_, err := os.Stat(tl.segmentFile(0))
	assert.NoError(t, err)
}

func TestRestartRebuildsMetadata(t *testing.T) {
	dir := t.TempDir()
	store, err := datastore.OpenPebble(filepath.Join(dir, "datastore"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tl, err := openTestLog(t, dir, store, 10)
	require.NoError(t, err)

	s := uuid.New()
	require.NoError(t, tl.AppendRange([]*types.LogData{data(8, "a", s), data(9, "b", s), data(10, "c")}))
	require.NoError(t, tl.Append(21, data(21, "d", s)))
	require.NoError(t, tl.PrefixTrim(8))
	before := tl.GetTails()

	tl = tl.reopen(t)

	after := tl.GetTails()
	assert.Equal(t, before.GlobalTail, after.GlobalTail)
	assert.Equal(t, int64(21), after.StreamTails[s])
	assert.Equal(t, int64(9), tl.GetTrimMark())

	got, err := tl.Read(8)
	require.NoError(t, err)
	assert.True(t, got.IsTrimmed())
	got, err = tl.Read(9)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got.Data)
}

func TestRestartAfterTrimPastData(t *testing.T) {
	tl := newTestLog(t, 10)
	require.NoError(t, tl.Append(1, data(1, "x")))
	require.NoError(t, tl.PrefixTrim(25))

	tl = tl.reopen(t)

	assert.Equal(t, int64(26), tl.GetTrimMark())
	assert.Equal(t, int64(25), tl.GetTails().GlobalTail)

	ds, err := datastore.NewStreamLogDataStore(tl.store)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ds.TailSegment())
}

func TestRankedWrites(t *testing.T) {
	tl := newTestLog(t, 10)
	rank := func(r int64) *types.DataRank { return &types.DataRank{Rank: r, ID: uuid.New()} }

	require.NoError(t, tl.Append(1, data(1, "unranked")))
	ranked := data(1, "ranked")
	ranked.Rank = rank(10)
	assert.ErrorIs(t, tl.Append(1, ranked), types.ErrDataOutranked)

	first := data(2, "proposal")
	first.Rank = rank(5)
	require.NoError(t, tl.Append(2, first))

	lower := data(2, "lower")
	lower.Rank = rank(3)
	assert.ErrorIs(t, tl.Append(2, lower), types.ErrDataOutranked)

	equal := data(2, "equal")
	equal.Rank = &types.DataRank{Rank: first.Rank.Rank, ID: first.Rank.ID}
	assert.ErrorIs(t, tl.Append(2, equal), types.ErrDataOutranked)

	adopt := &types.LogData{Type: types.DataTypeRankOnly, GlobalAddress: 2, Rank: rank(7)}
	err := tl.Append(2, adopt)
	require.ErrorIs(t, err, types.ErrValueAdopted)
	var adopted *types.ValueAdoptedError
	require.True(t, errors.As(err, &adopted))
	assert.Equal(t, []byte("proposal"), adopted.Existing.Data)

	higher := data(2, "higher")
	higher.Rank = rank(9)
	require.NoError(t, tl.Append(2, higher))

	got, err := tl.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("higher"), got.Data)
	assert.Equal(t, int64(9), got.Rank.Rank)
}

func TestRankedOverwriteSurvivesRestart(t *testing.T) {
	tl := newTestLog(t, 10, func(c *config.Config) { c.ReadCacheSize = 1 << 20 })

	first := data(3, "old")
	first.Rank = &types.DataRank{Rank: 1, ID: uuid.New()}
	require.NoError(t, tl.Append(3, first))
	_, err := tl.Read(3)
	require.NoError(t, err)

	second := data(3, "new")
	second.Rank = &types.DataRank{Rank: 2, ID: uuid.New()}
	require.NoError(t, tl.Append(3, second))

	got, err := tl.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got.Data)

	tl = tl.reopen(t)
	got, err = tl.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got.Data)
}

func TestTrimSingleAddress(t *testing.T) {
	tl := newTestLog(t, 10)
	require.NoError(t, tl.AppendRange(dataRange(0, 4)))

	require.NoError(t, tl.Trim(3))

	got, err := tl.Read(3)
	require.NoError(t, err)
	assert.True(t, got.IsTrimmed())

	err = tl.Append(3, data(3, "again"))
	cause, ok := types.OverwriteCauseOf(err)
	require.True(t, ok)
	assert.Equal(t, types.CauseTrim, cause)

	require.NoError(t, tl.Compact())
	got, err = tl.Read(3)
	require.NoError(t, err)
	assert.True(t, got.IsTrimmed())

	got, err = tl.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-4"), got.Data)
}

func TestReset(t *testing.T) {
	tl := newTestLog(t, 10)
	require.NoError(t, tl.AppendRange(dataRange(5, 15)))
	require.NoError(t, tl.PrefixTrim(6))

	require.NoError(t, tl.Reset())

	for _, seg := range []int64{0, 1} {
		_, err := os.Stat(tl.segmentFile(seg))
		assert.True(t, errors.Is(err, os.ErrNotExist), "segment %d", seg)
	}
	assert.Equal(t, int64(0), tl.GetTrimMark())
	assert.Equal(t, types.NonAddress, tl.GetTails().GlobalTail)
	assert.Empty(t, tl.GetTails().StreamTails)

	got, err := tl.Read(5)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, tl.Append(0, data(0, "fresh")))
	got, err = tl.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got.Data)
}

func TestConcurrentAppends(t *testing.T) {
	tl := newTestLog(t, 10)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				a := int64(i*8 + w)
				assert.NoError(t, tl.Append(a, data(a, "v")))
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, int64(199), tl.GetTails().GlobalTail)

	var (
		mu        sync.Mutex
		successes int
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			err := tl.Append(500, data(500, fmt.Sprintf("race-%d", w)))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, types.ErrOverwrite)
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	for a := int64(0); a < 200; a++ {
		got, err := tl.Read(a)
		require.NoError(t, err)
		require.NotNil(t, got, "address %d", a)
	}
}

func TestSyncAndClose(t *testing.T) {
	tl := newTestLog(t, 10)
	require.NoError(t, tl.Append(0, data(0, "a")))
	require.NoError(t, tl.Append(15, data(15, "b")))

	require.NoError(t, tl.Sync(true))
	require.NoError(t, tl.Sync(false))

	require.NoError(t, tl.Close())
	assert.ErrorIs(t, tl.Append(1, data(1, "c")), types.ErrClosed)
	_, err := tl.Read(0)
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.NoError(t, tl.Close())
}

func TestConcurrentPrefixTrimNeverRegresses(t *testing.T) {
	tl := newTestLog(t, 10)

	var wg sync.WaitGroup
	for i := int64(0); i < 32; i++ {
		wg.Add(1)
		go func(address int64) {
			defer wg.Done()
			assert.NoError(t, tl.PrefixTrim(address))
		}((i * 7) % 32)
	}
	wg.Wait()

	assert.Equal(t, int64(32), tl.GetTrimMark())
	got, err := tl.Read(31)
	require.NoError(t, err)
	assert.True(t, got.IsTrimmed())
}

func TestTailPersistFailureLeavesNoDuplicate(t *testing.T) {
	store := &flakyStore{DataStore: datastore.NewInmem()}
	tl, err := openTestLog(t, t.TempDir(), store, 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tl.Close() })

	require.NoError(t, tl.Append(0, data(0, "a")))

	store.fail.Store(true)
	require.Error(t, tl.Append(15, data(15, "b")))
	store.fail.Store(false)

	err = tl.Append(15, data(15, "b"))
	cause, ok := types.OverwriteCauseOf(err)
	require.True(t, ok)
	assert.Equal(t, types.CauseSameData, cause)

	got, err := tl.Read(15)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got.Data)

	report, err := disk.InspectSegment(tl.segmentFile(1), true)
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, int64(15), report.Records[0].Entry.GlobalAddress)

	tl = tl.reopen(t)
	assert.Equal(t, int64(15), tl.GetTails().GlobalTail)
	ds, err := datastore.NewStreamLogDataStore(store)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ds.TailSegment())
}

func TestResetRemovesSegmentsPastTail(t *testing.T) {
	tl := newTestLog(t, 10)
	require.NoError(t, tl.Append(1, data(1, "a")))

	got, err := tl.Read(95)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = os.Stat(tl.segmentFile(9))
	require.NoError(t, err)

	require.NoError(t, tl.Reset())

	for _, seg := range []int64{0, 9} {
		_, err := os.Stat(tl.segmentFile(seg))
		assert.True(t, errors.Is(err, os.ErrNotExist), "segment %d", seg)
	}
}

func TestResetDropsCachedPayloads(t *testing.T) {
	tl := newTestLog(t, 10, func(c *config.Config) { c.ReadCacheSize = 1 << 20 })

	require.NoError(t, tl.Append(2, data(2, "before")))
	got, err := tl.Read(2)
	require.NoError(t, err)
	require.Equal(t, []byte("before"), got.Data)

	require.NoError(t, tl.Reset())

	// same address, same length and therefore the same offset in the new file
	require.NoError(t, tl.Append(2, data(2, "after!")))
	got, err = tl.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("after!"), got.Data)
}
