package record

import (
	"fmt"
	"io"

	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
	"google.golang.org/protobuf/encoding/protowire"
)

// Version is the on-disk format version every segment file must carry.
const Version = 2

const (
	headerVersionField protowire.Number = 1
	headerVerifyField  protowire.Number = 2
)

// LogHeader is the payload of the first record of every segment file.
type LogHeader struct {
	Version        int32
	VerifyChecksum bool
}

func (h LogHeader) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, headerVersionField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Version))
	b = protowire.AppendTag(b, headerVerifyField, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(h.VerifyChecksum))
	return b
}

func UnmarshalHeader(b []byte) (LogHeader, error) {
	var h LogHeader
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return LogHeader{}, corrupt("header tag", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == headerVersionField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return LogHeader{}, corrupt("header version", protowire.ParseError(n))
			}
			h.Version = int32(v)
			b = b[n:]
		case num == headerVerifyField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return LogHeader{}, corrupt("header verify flag", protowire.ParseError(n))
			}
			h.VerifyChecksum = protowire.DecodeBool(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return LogHeader{}, corrupt("header field", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return h, nil
}

// EncodeHeader returns a framed header record ready to be written at offset 0.
func EncodeHeader(h LogHeader) []byte {
	payload := h.Marshal()
	return Frame(NewMetadata(payload), payload)
}

// ReadHeader parses the header record at the start of r. The header payload
// checksum is always validated. It returns the header and the offset of the
// first entry record.
func ReadHeader(r io.ReaderAt, size int64) (LogHeader, int64, error) {
	m, payload, err := ReadRecord(r, 0, size, false)
	if err != nil {
		return LogHeader{}, 0, err
	}
	if util.Checksum(payload) != m.PayloadChecksum {
		return LogHeader{}, 0, fmt.Errorf("%w: header checksum mismatch", types.ErrDataCorruption)
	}
	h, err := UnmarshalHeader(payload)
	if err != nil {
		return LogHeader{}, 0, err
	}
	return h, MetadataSize + int64(m.Length), nil
}

func corrupt(what string, err error) error {
	return fmt.Errorf("%w: malformed %s: %v", types.ErrDataCorruption, what, err)
}
