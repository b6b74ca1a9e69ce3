package store

import (
	"io"

	"github.com/gnames/csdoptimade/pkg/ent/record"
)

// Store is a persistent collection of source records addressed by index.
type Store interface {
	record.Opener

	// Load replaces the content of the store with newline-delimited JSON
	// records from r and returns the number of indices used.
	Load(r io.Reader) (int, error)

	// Close closes the store. Readers opened from it become invalid.
	Close() error
}
