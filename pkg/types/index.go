package types

// AddressMetaData locates one address's payload inside an open segment file.
// Offset points at the first payload byte, after the record's metadata header.
type AddressMetaData struct {
	PayloadChecksum int32
	Length          int32
	Offset          int64
}
