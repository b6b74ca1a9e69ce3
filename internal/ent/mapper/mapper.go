// Package mapper converts structural database records into OPTIMADE
// structure and reference resources.
package mapper

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gnames/csdoptimade/internal/ent/citation"
	"github.com/gnames/csdoptimade/internal/ent/formula"
	"github.com/gnames/csdoptimade/pkg/ent/optimade"
	"github.com/gnames/csdoptimade/pkg/ent/record"
	"github.com/gnames/gnuuid"
)

const (
	featureDisorder      = "disorder"
	featureImplicitAtoms = "implicit_atoms"
	maxSpaceGroup        = 230
)

// Clock returns the current time.
type Clock func() time.Time

type mapper struct {
	clock     Clock
	extractor *citation.Extractor
}

// Option changes settings of the Mapper.
type Option func(*mapper)

// OptClock sets the source of last_modified timestamps.
func OptClock(c Clock) Option {
	return func(m *mapper) {
		m.clock = c
	}
}

// OptExtractor sets the citation extractor.
func OptExtractor(e *citation.Extractor) Option {
	return func(m *mapper) {
		m.extractor = e
	}
}

// New creates the Mapper. It is safe for concurrent use.
func New(opts ...Option) Mapper {
	res := mapper{
		clock:     time.Now,
		extractor: citation.New(nil),
	}
	for _, opt := range opts {
		opt(&res)
	}
	return &res
}

// Map converts a record to a structure resource and its references.
func (m *mapper) Map(
	rec record.Record,
) (optimade.Structure, []optimade.Reference, error) {
	var res optimade.Structure
	if rec.Identifier == "" {
		return res, nil, errors.New("record has no identifier")
	}

	now := m.clock()
	attr := optimade.StructureAttributes{
		LastModified:       now.UTC().Format(time.RFC3339),
		ImmutableID:        gnuuid.New(rec.Identifier).String(),
		DimensionTypes:     []int{1, 1, 1},
		NPeriodicDimension: 3,
		StructureFeatures:  []string{},
	}

	cr := rec.Crystal
	has3D := rec.Has3DStructure && cr != nil
	if has3D {
		setGeometry(&attr, cr)
	}

	if err := setComposition(&attr, rec); err != nil {
		return res, nil, fmt.Errorf("record %s: %w", rec.Identifier, err)
	}

	if rec.HasDisorder {
		attr.StructureFeatures = append(attr.StructureFeatures, featureDisorder)
	}
	if implicitAtoms(attr.Species, attr.SpeciesAtSites) {
		attr.StructureFeatures = append(attr.StructureFeatures, featureImplicitAtoms)
	}

	setProviderFields(&attr, rec)

	refs := m.extractor.Extract(rec.Publications, now)

	res = optimade.Structure{
		ID:         rec.Identifier,
		Type:       optimade.StructuresType,
		Attributes: attr,
	}
	if len(refs) > 0 {
		links := make([]optimade.RelationshipLink, len(refs))
		for i := range refs {
			links[i] = refs[i].Link()
		}
		res.Relationships = &optimade.StructureRelations{
			References: &optimade.Relationship{Data: links},
		}
	}
	return res, refs, nil
}

// setGeometry copies positions and cell parameters of a record with
// available 3D coordinates.
func setGeometry(attr *optimade.StructureAttributes, cr *record.Crystal) {
	if cr.Packed != nil && len(cr.Packed.Atoms) > 0 {
		pos := make([][3]float64, 0, len(cr.Packed.Atoms))
		sites := make([]string, 0, len(cr.Packed.Atoms))
		for _, a := range cr.Packed.Atoms {
			if a.Coordinates == nil {
				pos, sites = nil, nil
				break
			}
			c := a.Coordinates
			pos = append(pos, [3]float64{c.X, c.Y, c.Z})
			sites = append(sites, a.Symbol)
		}
		if len(pos) > 0 {
			n := len(pos)
			attr.CartesianSitePositions = pos
			attr.SpeciesAtSites = sites
			attr.NSites = &n
		}
	}

	attr.CSDCellVolume = cr.CellVolume
	if l := cr.CellLengths; l != nil {
		attr.CSDLatticeA = ptr(l.A)
		attr.CSDLatticeB = ptr(l.B)
		attr.CSDLatticeC = ptr(l.C)
	}
	if a := cr.CellAngles; a != nil {
		attr.CSDLatticeAlpha = ptr(a.Alpha)
		attr.CSDLatticeBeta = ptr(a.Beta)
		attr.CSDLatticeGamma = ptr(a.Gamma)
	}
	if cr.CellLengths != nil && cr.CellAngles != nil {
		attr.LatticeVectors = LatticeVectors(*cr.CellLengths, *cr.CellAngles)
	}
}

// setComposition sets elements, formulas and species. Only a reduction
// fault of a valid formula is returned as an error.
func setComposition(attr *optimade.StructureAttributes, rec record.Record) error {
	var reduced string
	var raw []string
	var err error

	f := entryFormula(rec)
	if f != nil {
		attr.ChemicalFormulaDescriptive = ptr(strings.TrimSpace(*f))
		reduced, raw, err = formula.Reduce(*f)
	} else {
		err = &formula.InvalidFormulaError{Reason: "no formula"}
	}

	var invalid *formula.InvalidFormulaError
	switch {
	case errors.As(err, &invalid):
		raw = asymmetricElements(rec.Crystal)
	case err != nil:
		return err
	}

	// every site needs a species, formula or not
	if attr.SpeciesAtSites != nil {
		attr.Species = species(raw, attr.SpeciesAtSites)
	}

	if len(raw) == 0 {
		return nil
	}

	elements := displayElements(raw)
	attr.Elements = elements
	attr.NElements = ptr(len(elements))

	if reduced != "" {
		attr.ChemicalFormulaReduced = ptr(reduced)
		anon, err := formula.Anonymous(reduced)
		if err != nil {
			return err
		}
		attr.ChemicalFormulaAnonymous = &anon
		ratios, err := ratios(reduced, elements)
		if err != nil {
			return err
		}
		attr.ElementsRatios = ratios
	}
	return nil
}

func entryFormula(rec record.Record) *string {
	if rec.Formula != nil {
		return rec.Formula
	}
	if rec.Crystal != nil {
		return rec.Crystal.Formula
	}
	return nil
}

// species builds one species per raw element or site symbol, sorted by name.
func species(raw, sites []string) []optimade.Species {
	names := slices.Clone(raw)
	for _, s := range sites {
		if !slices.Contains(names, s) {
			names = append(names, s)
		}
	}
	slices.Sort(names)

	res := make([]optimade.Species, len(names))
	for i, el := range names {
		res[i] = optimade.Species{
			Name:            el,
			ChemicalSymbols: []string{displaySymbol(el)},
			Concentration:   []float64{1.0},
		}
	}
	return res
}

func asymmetricElements(cr *record.Crystal) []string {
	if cr == nil || cr.AsymmetricUnit == nil {
		return nil
	}
	var res []string
	for _, a := range cr.AsymmetricUnit.Atoms {
		if a.Symbol == "" || slices.Contains(res, a.Symbol) {
			continue
		}
		res = append(res, a.Symbol)
	}
	slices.Sort(res)
	return res
}

func displaySymbol(el string) string {
	if el == "D" {
		return "H"
	}
	return el
}

func displayElements(raw []string) []string {
	res := make([]string, 0, len(raw))
	for _, el := range raw {
		res = append(res, displaySymbol(el))
	}
	slices.Sort(res)
	return slices.Compact(res)
}

func ratios(reduced string, elements []string) ([]float64, error) {
	counts, err := formula.Counts(reduced)
	if err != nil {
		return nil, err
	}
	var total int
	for _, n := range counts {
		total += n
	}
	res := make([]float64, len(elements))
	for i, el := range elements {
		res[i] = float64(counts[el]) / float64(total)
	}
	return res, nil
}

func implicitAtoms(species []optimade.Species, sites []string) bool {
	for _, sp := range species {
		if !slices.Contains(sites, sp.Name) {
			return true
		}
	}
	return false
}

// setProviderFields copies the database-specific attributes.
func setProviderFields(attr *optimade.StructureAttributes, rec record.Record) {
	attr.CSDChemicalName = rec.ChemicalName
	attr.CSDDisorderDetails = rec.DisorderDetails
	attr.CSDCCDCNumber = rec.CCDCNumber
	attr.CSDSMILES = rec.SMILES
	attr.CSDRemarks = rec.Remarks
	if rec.DepositionDate != nil {
		attr.CSDDepositionDate = optimade.NewDate(*rec.DepositionDate)
	}
	for _, inchi := range rec.InChIs {
		attr.CSDInChI = append(attr.CSDInChI, inchi.String)
		if inchi.Key != "" {
			attr.CSDInChIKey = append(attr.CSDInChIKey, inchi.Key)
		}
	}

	cr := rec.Crystal
	if cr == nil {
		return
	}
	attr.CSDCrystalSystem = cr.CrystalSystem
	attr.CSDSpaceGroupSymbol = cr.SpaceGroupSymbol
	attr.CSDZValue = cr.ZValue
	attr.CSDZPrime = cr.ZPrime
	if n := cr.SpaceGroupNumber; n != nil && *n >= 1 && *n <= maxSpaceGroup {
		attr.SpaceGroupITNumber = ptr(*n)
	}
}

func ptr[T any](v T) *T {
	return &v
}
