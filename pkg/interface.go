package csdoptimade

import (
	"context"
	"io"

	"github.com/gnames/csdoptimade/internal/ent/ingest"
	"github.com/gnames/csdoptimade/internal/ent/serve"
	"github.com/gnames/csdoptimade/internal/ent/store"
)

// CSDOptimade is an interface for converting structural database records to
// OPTIMADE and serving the result.
type CSDOptimade interface {
	// Load imports newline-delimited JSON records into a record store.
	Load(store.Store, io.Reader) (int, error)

	// Ingest converts records to one OPTIMADE JSONL file.
	Ingest(context.Context, ingest.Ingester) (ingest.Summary, error)

	// Serve runs OPTIMADE API over a converted file.
	Serve(context.Context, serve.Server) error
}
