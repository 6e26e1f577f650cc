package types

// LogStorage is the contract the log unit exposes to its request handlers.
type LogStorage interface {
	Append(address int64, entry *LogData) error
	AppendRange(entries []*LogData) error
	Read(address int64) (*LogData, error)

	PrefixTrim(address int64) error
	Trim(address int64) error
	Compact() error
	GetTrimMark() int64
	GetTails() TailsResponse

	Sync(force bool) error
	Reset() error
	Close() error
}
