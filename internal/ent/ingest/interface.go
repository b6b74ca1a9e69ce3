package ingest

import "context"

// Ingester is the interface that wraps the Ingest method.
type Ingester interface {
	// Ingest converts source records to OPTIMADE JSON lines and merges them
	// into one file.
	Ingest(ctx context.Context) (Summary, error)
}

// Summary describes the outcome of an ingest run.
type Summary struct {
	// Chunks is the number of processed chunks.
	Chunks int

	// Total is the number of records that went to the mapper.
	Total int

	// Bad is the number of records that could not be mapped.
	Bad int

	// Lines is the number of data lines in the final file after
	// deduplication.
	Lines int

	// Duplicates is the number of data lines dropped by deduplication.
	Duplicates int

	// Output is the path to the final file.
	Output string
}

// Good returns the number of successfully mapped records.
func (s Summary) Good() int {
	return s.Total - s.Bad
}
