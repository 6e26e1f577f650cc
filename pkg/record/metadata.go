package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
)

const (
	// MetadataSize is payloadChecksum(4) + lengthChecksum(4) + length(4)
	MetadataSize = 12

	payloadChecksumOffset = 0
	lengthChecksumOffset  = 4
	lengthOffset          = 8
)

// ErrPartialWrite means fewer bytes remain than the record declares. It marks
// an interrupted append, not corruption.
var ErrPartialWrite = errors.New("partially written record")

// Metadata is the fixed-size header written in front of every payload.
type Metadata struct {
	PayloadChecksum int32
	LengthChecksum  int32
	Length          int32
}

func NewMetadata(payload []byte) Metadata {
	length := int32(len(payload))
	return Metadata{
		PayloadChecksum: util.Checksum(payload),
		LengthChecksum:  util.ChecksumInt(length),
		Length:          length,
	}
}

func (m Metadata) MarshalBinary() []byte {
	buf := make([]byte, MetadataSize)
	m.put(buf)
	return buf
}

func (m Metadata) put(buf []byte) {
	binary.BigEndian.PutUint32(buf[payloadChecksumOffset:], uint32(m.PayloadChecksum))
	binary.BigEndian.PutUint32(buf[lengthChecksumOffset:], uint32(m.LengthChecksum))
	binary.BigEndian.PutUint32(buf[lengthOffset:], uint32(m.Length))
}

// UnmarshalMetadata decodes a header and validates its length checksum.
func UnmarshalMetadata(buf []byte) (Metadata, error) {
	if len(buf) < MetadataSize {
		return Metadata{}, ErrPartialWrite
	}
	m := Metadata{
		PayloadChecksum: int32(binary.BigEndian.Uint32(buf[payloadChecksumOffset:])),
		LengthChecksum:  int32(binary.BigEndian.Uint32(buf[lengthChecksumOffset:])),
		Length:          int32(binary.BigEndian.Uint32(buf[lengthOffset:])),
	}
	if m.LengthChecksum != util.ChecksumInt(m.Length) {
		return Metadata{}, fmt.Errorf("%w: metadata has invalid length checksum", types.ErrDataCorruption)
	}
	if m.Length < 0 {
		return Metadata{}, fmt.Errorf("%w: negative record length %d", types.ErrDataCorruption, m.Length)
	}
	return m, nil
}

// Frame concatenates the serialized metadata and the payload, header first.
func Frame(m Metadata, payload []byte) []byte {
	buf := make([]byte, MetadataSize+len(payload))
	m.put(buf)
	copy(buf[MetadataSize:], payload)
	return buf
}

// ReadMetadata parses the header at off. size is the number of valid bytes in r.
func ReadMetadata(r io.ReaderAt, off, size int64) (Metadata, error) {
	if size-off < MetadataSize {
		return Metadata{}, ErrPartialWrite
	}
	buf := make([]byte, MetadataSize)
	if _, err := r.ReadAt(buf, off); err != nil {
		return Metadata{}, fmt.Errorf("read metadata at %d: %w", off, err)
	}
	return UnmarshalMetadata(buf)
}

// ReadRecord reads the record starting at off. With verify set the payload
// checksum is validated as well.
func ReadRecord(r io.ReaderAt, off, size int64, verify bool) (Metadata, []byte, error) {
	m, err := ReadMetadata(r, off, size)
	if err != nil {
		return Metadata{}, nil, err
	}

	payloadOff := off + MetadataSize
	if size-payloadOff < int64(m.Length) {
		return Metadata{}, nil, ErrPartialWrite
	}

	payload := make([]byte, m.Length)
	if _, err := r.ReadAt(payload, payloadOff); err != nil {
		return Metadata{}, nil, fmt.Errorf("read payload at %d: %w", payloadOff, err)
	}

	if verify && util.Checksum(payload) != m.PayloadChecksum {
		return Metadata{}, nil, fmt.Errorf("%w: payload checksum mismatch at offset %d", types.ErrDataCorruption, off)
	}
	return m, payload, nil
}
