package mapper

import (
	"github.com/gnames/csdoptimade/pkg/ent/optimade"
	"github.com/gnames/csdoptimade/pkg/ent/record"
)

// Mapper converts source records to OPTIMADE resources.
type Mapper interface {
	// Map converts a record to a structure and the references it links to.
	// An error means the record cannot be represented and should be counted
	// as bad.
	Map(rec record.Record) (optimade.Structure, []optimade.Reference, error)
}
