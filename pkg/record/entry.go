package record

import (
	"fmt"

	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// LogEntry wire field numbers. They are part of the file format.
const (
	entryDataTypeField           protowire.Number = 1
	entryDataField               protowire.Number = 2
	entryGlobalAddressField      protowire.Number = 3
	entryBackpointerField        protowire.Number = 4
	entryRankField               protowire.Number = 5
	entryClientIDField           protowire.Number = 6
	entryThreadIDField           protowire.Number = 7
	entryCheckpointTypeField     protowire.Number = 8
	entryCheckpointIDField       protowire.Number = 9
	entryCheckpointStreamField   protowire.Number = 10
	entryCheckpointStartAddField protowire.Number = 11

	// map entry and rank sub-messages
	subKeyField   protowire.Number = 1
	subValueField protowire.Number = 2
)

// MarshalEntry serializes d as the entry payload for address.
func MarshalEntry(address int64, d *types.LogData) []byte {
	var b []byte
	b = appendVarintField(b, entryDataTypeField, uint64(d.Type))
	if len(d.Data) > 0 {
		b = protowire.AppendTag(b, entryDataField, protowire.BytesType)
		b = protowire.AppendBytes(b, d.Data)
	}
	b = appendVarintField(b, entryGlobalAddressField, uint64(address))

	for _, id := range d.Streams() {
		var bp []byte
		bp = appendUUIDField(bp, subKeyField, id)
		bp = appendVarintField(bp, subValueField, uint64(d.Backpointers[id]))
		b = protowire.AppendTag(b, entryBackpointerField, protowire.BytesType)
		b = protowire.AppendBytes(b, bp)
	}

	if d.Rank != nil {
		var rb []byte
		rb = appendVarintField(rb, subKeyField, uint64(d.Rank.Rank))
		rb = appendUUIDField(rb, subValueField, d.Rank.ID)
		b = protowire.AppendTag(b, entryRankField, protowire.BytesType)
		b = protowire.AppendBytes(b, rb)
	}

	if d.ClientID != nil {
		b = appendUUIDField(b, entryClientIDField, *d.ClientID)
	}
	if d.ThreadID != nil {
		b = appendVarintField(b, entryThreadIDField, uint64(*d.ThreadID))
	}

	if cp := d.Checkpoint; cp != nil {
		b = appendVarintField(b, entryCheckpointTypeField, uint64(cp.Type))
		b = appendUUIDField(b, entryCheckpointIDField, cp.ID)
		b = appendUUIDField(b, entryCheckpointStreamField, cp.StreamID)
		b = appendVarintField(b, entryCheckpointStartAddField, uint64(cp.StreamStartAddress))
	}
	return b
}

// UnmarshalEntry decodes an entry payload. Malformed bytes are data corruption.
func UnmarshalEntry(b []byte) (*types.LogData, error) {
	d := &types.LogData{}
	var (
		clientID *uuid.UUID
		threadID *int64
		cp       *types.CheckpointMetadata
	)
	checkpoint := func() *types.CheckpointMetadata {
		if cp == nil {
			cp = &types.CheckpointMetadata{}
		}
		return cp
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, corrupt("entry tag", protowire.ParseError(n))
		}
		b = b[n:]

		if typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(fmt.Sprintf("entry field %d", num), protowire.ParseError(n))
			}
			b = b[n:]

			switch num {
			case entryDataTypeField:
				d.Type = types.DataType(v)
			case entryGlobalAddressField:
				d.GlobalAddress = int64(v)
			case entryThreadIDField:
				tid := int64(v)
				threadID = &tid
			case entryCheckpointTypeField:
				checkpoint().Type = types.CheckpointType(v)
			case entryCheckpointStartAddField:
				checkpoint().StreamStartAddress = int64(v)
			}
			continue
		}

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, corrupt(fmt.Sprintf("entry field %d", num), protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, corrupt(fmt.Sprintf("entry field %d", num), protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case entryDataField:
			d.Data = append([]byte(nil), v...)
		case entryBackpointerField:
			id, addr, err := decodePair(v)
			if err != nil {
				return nil, err
			}
			if d.Backpointers == nil {
				d.Backpointers = make(map[uuid.UUID]int64)
			}
			d.Backpointers[id] = addr
		case entryRankField:
			id, rank, err := decodeRank(v)
			if err != nil {
				return nil, err
			}
			d.Rank = &types.DataRank{Rank: rank, ID: id}
		case entryClientIDField:
			id, err := uuid.FromBytes(v)
			if err != nil {
				return nil, corrupt("client id", err)
			}
			clientID = &id
		case entryCheckpointIDField:
			id, err := uuid.FromBytes(v)
			if err != nil {
				return nil, corrupt("checkpoint id", err)
			}
			checkpoint().ID = id
		case entryCheckpointStreamField:
			id, err := uuid.FromBytes(v)
			if err != nil {
				return nil, corrupt("checkpointed stream id", err)
			}
			checkpoint().StreamID = id
		}
	}

	d.ClientID = clientID
	d.ThreadID = threadID
	d.Checkpoint = cp
	return d, nil
}

// EncodeEntry frames the entry payload for address and returns the metadata
// alongside the record bytes.
func EncodeEntry(address int64, d *types.LogData) (Metadata, []byte) {
	payload := MarshalEntry(address, d)
	m := NewMetadata(payload)
	return m, Frame(m, payload)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendUUIDField(b []byte, num protowire.Number, id uuid.UUID) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, id[:])
}

// decodePair decodes a backpointer map entry {1: stream id, 2: address}.
func decodePair(b []byte) (uuid.UUID, int64, error) {
	var (
		id   uuid.UUID
		addr int64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return id, 0, corrupt("backpointer tag", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == subKeyField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return id, 0, corrupt("backpointer stream", protowire.ParseError(n))
			}
			parsed, err := uuid.FromBytes(v)
			if err != nil {
				return id, 0, corrupt("backpointer stream", err)
			}
			id = parsed
			b = b[n:]
		case num == subValueField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return id, 0, corrupt("backpointer address", protowire.ParseError(n))
			}
			addr = int64(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return id, 0, corrupt("backpointer field", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return id, addr, nil
}

// decodeRank decodes a rank sub-message {1: rank, 2: id}.
func decodeRank(b []byte) (uuid.UUID, int64, error) {
	var (
		id   uuid.UUID
		rank int64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return id, 0, corrupt("rank tag", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == subKeyField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return id, 0, corrupt("rank value", protowire.ParseError(n))
			}
			rank = int64(v)
			b = b[n:]
		case num == subValueField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return id, 0, corrupt("rank id", protowire.ParseError(n))
			}
			parsed, err := uuid.FromBytes(v)
			if err != nil {
				return id, 0, corrupt("rank id", err)
			}
			id = parsed
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return id, 0, corrupt("rank field", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return id, rank, nil
}
