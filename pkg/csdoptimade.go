package csdoptimade

import (
	"context"
	"io"

	"github.com/gnames/csdoptimade/internal/ent/ingest"
	"github.com/gnames/csdoptimade/internal/ent/serve"
	"github.com/gnames/csdoptimade/internal/ent/store"
	"github.com/gnames/csdoptimade/pkg/config"
)

// csdoptimade is an implementation of CSDOptimade interface.
type csdoptimade struct {
	cfg config.Config
}

// New creates a new instance of CSDOptimade.
func New(
	cfg config.Config,
) CSDOptimade {
	res := csdoptimade{
		cfg: cfg}
	return &res
}

// Load imports records to the store.
func (c *csdoptimade) Load(s store.Store, r io.Reader) (int, error) {
	return s.Load(r)
}

// Ingest converts records to OPTIMADE JSONL file.
func (c *csdoptimade) Ingest(
	ctx context.Context,
	i ingest.Ingester,
) (ingest.Summary, error) {
	return i.Ingest(ctx)
}

// Serve runs HTTP server on the configured port.
func (c *csdoptimade) Serve(ctx context.Context, s serve.Server) error {
	return s.Run(ctx, c.cfg.Port)
}
