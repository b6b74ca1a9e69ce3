package record

import "errors"

// ErrClosed is returned when a closed reader is used.
var ErrClosed = errors.New("record reader is closed")

// Status is the outcome of an indexed read.
type Status int

const (
	// Found means a record exists at the index.
	Found Status = iota

	// NotFound means the index is inside the database, but there is no
	// record at it.
	NotFound

	// OutOfRange means the index is past the last record of the database.
	OutOfRange
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case OutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

// Reader gives indexed access to records. A Reader is not safe for
// concurrent use, every worker opens its own.
type Reader interface {
	// Entry returns the record at the index. The record is meaningful only
	// when the status is Found.
	Entry(idx int) (Record, Status, error)

	// Close releases the reader.
	Close() error
}

// Opener creates independent readers over the same database.
type Opener interface {
	// Open returns a new Reader.
	Open() (Reader, error)

	// Len returns the number of records in the database.
	Len() (int, error)
}
