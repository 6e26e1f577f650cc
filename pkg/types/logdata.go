package types

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// NonAddress marks "no address" for tails and unset scalars.
const NonAddress int64 = -1

type DataType uint8

const (
	DataTypeData DataType = iota
	DataTypeEmpty
	DataTypeHole
	DataTypeTrimmed
	DataTypeRankOnly
)

func (t DataType) String() string {
	switch t {
	case DataTypeData:
		return "DATA"
	case DataTypeEmpty:
		return "EMPTY"
	case DataTypeHole:
		return "HOLE"
	case DataTypeTrimmed:
		return "TRIMMED"
	case DataTypeRankOnly:
		return "RANK_ONLY"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

type CheckpointType uint8

const (
	CheckpointStart CheckpointType = iota
	CheckpointContinuation
	CheckpointEnd
)

// DataRank orders competing writes to the same address.
type DataRank struct {
	Rank int64
	ID   uuid.UUID
}

// Compare orders by Rank first and breaks ties on ID bytes.
func (r DataRank) Compare(o DataRank) int {
	switch {
	case r.Rank < o.Rank:
		return -1
	case r.Rank > o.Rank:
		return 1
	}
	return bytes.Compare(r.ID[:], o.ID[:])
}

type CheckpointMetadata struct {
	Type               CheckpointType
	ID                 uuid.UUID
	StreamID           uuid.UUID
	StreamStartAddress int64
}

// LogData is a single log entry as seen by callers of the engine.
type LogData struct {
	Type          DataType
	Data          []byte
	GlobalAddress int64
	// Backpointers maps each stream the entry belongs to onto the previous
	// address written for that stream.
	Backpointers map[uuid.UUID]int64
	Rank         *DataRank
	ClientID     *uuid.UUID
	ThreadID     *int64
	Checkpoint   *CheckpointMetadata
}

func NewData(address int64, data []byte, backpointers map[uuid.UUID]int64) *LogData {
	return &LogData{
		Type:          DataTypeData,
		Data:          data,
		GlobalAddress: address,
		Backpointers:  backpointers,
	}
}

func NewTrimmed(address int64) *LogData {
	return &LogData{Type: DataTypeTrimmed, GlobalAddress: address}
}

func NewHole(address int64) *LogData {
	return &LogData{Type: DataTypeHole, GlobalAddress: address}
}

func (d *LogData) IsTrimmed() bool { return d != nil && d.Type == DataTypeTrimmed }

func (d *LogData) IsHole() bool { return d != nil && d.Type == DataTypeHole }

// Streams returns the stream ids of the entry in a stable order.
func (d *LogData) Streams() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Backpointers))
	for id := range d.Backpointers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// SameData reports whether two entries carry the same payload, type and
// backpointers. Rank and client identifiers are ignored.
func (d *LogData) SameData(o *LogData) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Type != o.Type || !bytes.Equal(d.Data, o.Data) {
		return false
	}
	if len(d.Backpointers) != len(o.Backpointers) {
		return false
	}
	for id, addr := range d.Backpointers {
		if other, ok := o.Backpointers[id]; !ok || other != addr {
			return false
		}
	}
	return true
}

func (d *LogData) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("LogData[%d %s %dB streams=%d]", d.GlobalAddress, d.Type, len(d.Data), len(d.Backpointers))
}

// TailsResponse is a snapshot of the global and per-stream tails.
type TailsResponse struct {
	GlobalTail  int64
	StreamTails map[uuid.UUID]int64
}
