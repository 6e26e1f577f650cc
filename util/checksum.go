package util

import (
	"encoding/binary"
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum returns the CRC32C of b as a signed 32-bit value.
func Checksum(b []byte) int32 {
	return int32(crc32.Checksum(b, castagnoli))
}

// ChecksumInt checksums the big-endian encoding of v, so that a length
// field and a 4-byte buffer holding it hash identically.
func ChecksumInt(v int32) int32 {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	return Checksum(buf[:])
}
