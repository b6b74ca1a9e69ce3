package serve

import (
	"context"
	"net/http"
)

// Server exposes a merged OPTIMADE file over HTTP.
type Server interface {
	// Handler returns HTTP handler of the API.
	Handler() http.Handler

	// Run serves the API on the port until the context is canceled.
	Run(ctx context.Context, port int) error
}
