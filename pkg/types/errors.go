package types

import (
	"errors"
	"fmt"
)

var (
	ErrOverwrite            = errors.New("overwrite")
	ErrDataOutranked        = errors.New("value already decided, outranked")
	ErrValueAdopted         = errors.New("value already adopted")
	ErrDataCorruption       = errors.New("data corruption")
	ErrWriteRangeTooLarge   = errors.New("write range too large")
	ErrLogVersionMismatch   = errors.New("log version mismatch")
	ErrChecksumModeMismatch = errors.New("log file not generated with checksums")
	ErrClosed               = errors.New("stream log closed")
)

type OverwriteCause int

const (
	CauseDiffData OverwriteCause = iota
	CauseSameData
	CauseHole
	CauseTrim
)

func (c OverwriteCause) String() string {
	switch c {
	case CauseDiffData:
		return "DIFF_DATA"
	case CauseSameData:
		return "SAME_DATA"
	case CauseHole:
		return "HOLE"
	case CauseTrim:
		return "TRIM"
	default:
		return fmt.Sprintf("OverwriteCause(%d)", int(c))
	}
}

// OverwriteError is returned when an address already holds a final value.
type OverwriteError struct {
	Address int64
	Cause   OverwriteCause
}

func (e *OverwriteError) Error() string {
	return fmt.Sprintf("overwrite at address %d: %s", e.Address, e.Cause)
}

func (e *OverwriteError) Is(target error) bool {
	return target == ErrOverwrite
}

// ValueAdoptedError carries the already decided value a ranked proposer must adopt.
type ValueAdoptedError struct {
	Address  int64
	Existing *LogData
}

func (e *ValueAdoptedError) Error() string {
	return fmt.Sprintf("value already adopted at address %d", e.Address)
}

func (e *ValueAdoptedError) Is(target error) bool {
	return target == ErrValueAdopted
}

// OverwriteCauseOf extracts the cause of an overwrite error.
func OverwriteCauseOf(err error) (OverwriteCause, bool) {
	var ow *OverwriteError
	if errors.As(err, &ow) {
		return ow.Cause, true
	}
	return 0, false
}
