// Package optimade contains OPTIMADE resources produced from the structural
// database. Fields that are nil are omitted from the JSON output.
package optimade

import "time"

const (
	// StructuresType is the type tag of structure resources.
	StructuresType = "structures"

	// ReferencesType is the type tag of reference resources.
	ReferencesType = "references"

	// Prefix is the namespace of provider-specific fields.
	Prefix = "csd"
)

// EntryTypes lists the entry types exported by csdoptimade.
var EntryTypes = []string{StructuresType, ReferencesType}

// Date is a timestamp wrapped the way the serving database expects
// date-typed values, as {"$date": "2006-01-02T15:04:05Z"}.
type Date struct {
	Date string `json:"$date"`
}

// NewDate creates a Date from time.
func NewDate(t time.Time) *Date {
	return &Date{Date: t.UTC().Format(time.RFC3339)}
}

// Structure is an OPTIMADE structure resource.
type Structure struct {
	ID            string              `json:"id"`
	Type          string              `json:"type"`
	Attributes    StructureAttributes `json:"attributes"`
	Relationships *StructureRelations `json:"relationships,omitempty"`
}

// StructureRelations links a structure to other resources.
type StructureRelations struct {
	References *Relationship `json:"references,omitempty"`
}

// Relationship is a list of links to resources.
type Relationship struct {
	Data []RelationshipLink `json:"data"`
}

// RelationshipLink points to a resource by type and id.
type RelationshipLink struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Species describes a kind of site.
type Species struct {
	Name            string    `json:"name"`
	ChemicalSymbols []string  `json:"chemical_symbols"`
	Concentration   []float64 `json:"concentration"`
}

// StructureAttributes are standard and provider-specific attributes of a
// structure. Position-dependent fields are either all set or all nil.
type StructureAttributes struct {
	LastModified string `json:"last_modified"`
	ImmutableID  string `json:"immutable_id,omitempty"`

	Elements                   []string  `json:"elements,omitempty"`
	NElements                  *int      `json:"nelements,omitempty"`
	ElementsRatios             []float64 `json:"elements_ratios,omitempty"`
	ChemicalFormulaDescriptive *string   `json:"chemical_formula_descriptive,omitempty"`
	ChemicalFormulaReduced     *string   `json:"chemical_formula_reduced,omitempty"`
	ChemicalFormulaAnonymous   *string   `json:"chemical_formula_anonymous,omitempty"`

	DimensionTypes     []int `json:"dimension_types"`
	NPeriodicDimension int   `json:"nperiodic_dimensions"`

	LatticeVectors         [][3]float64 `json:"lattice_vectors,omitempty"`
	CartesianSitePositions [][3]float64 `json:"cartesian_site_positions,omitempty"`
	NSites                 *int         `json:"nsites,omitempty"`
	Species                []Species    `json:"species,omitempty"`
	SpeciesAtSites         []string     `json:"species_at_sites,omitempty"`
	StructureFeatures      []string     `json:"structure_features"`

	SpaceGroupITNumber *int `json:"space_group_it_number,omitempty"`

	CSDChemicalName     *string  `json:"_csd_chemical_name,omitempty"`
	CSDCellVolume       *float64 `json:"_csd_cell_volume,omitempty"`
	CSDLatticeA         *float64 `json:"_csd_lattice_parameter_a,omitempty"`
	CSDLatticeB         *float64 `json:"_csd_lattice_parameter_b,omitempty"`
	CSDLatticeC         *float64 `json:"_csd_lattice_parameter_c,omitempty"`
	CSDLatticeAlpha     *float64 `json:"_csd_lattice_parameter_alpha,omitempty"`
	CSDLatticeBeta      *float64 `json:"_csd_lattice_parameter_beta,omitempty"`
	CSDLatticeGamma     *float64 `json:"_csd_lattice_parameter_gamma,omitempty"`
	CSDCrystalSystem    *string  `json:"_csd_crystal_system,omitempty"`
	CSDSpaceGroupSymbol *string  `json:"_csd_space_group_symbol_hermann_mauginn,omitempty"`
	CSDDepositionDate   *Date    `json:"_csd_deposition_date,omitempty"`
	CSDDisorderDetails  *string  `json:"_csd_disorder_details,omitempty"`
	CSDCCDCNumber       *int     `json:"_csd_ccdc_number,omitempty"`
	CSDInChI            []string `json:"_csd_inchi,omitempty"`
	CSDInChIKey         []string `json:"_csd_inchi_key,omitempty"`
	CSDSMILES           *string  `json:"_csd_smiles,omitempty"`
	CSDZValue           *int     `json:"_csd_z_value,omitempty"`
	CSDZPrime           *float64 `json:"_csd_z_prime,omitempty"`
	CSDRemarks          *string  `json:"_csd_remarks,omitempty"`
}

// Reference is an OPTIMADE reference resource.
type Reference struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Attributes ReferenceAttributes `json:"attributes"`
}

// Person is an author of a reference.
type Person struct {
	Name      string `json:"name"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
}

// ReferenceAttributes are bibliographic attributes. Year, volume and pages
// are strings because the schema declares them as strings.
type ReferenceAttributes struct {
	LastModified string   `json:"last_modified"`
	Authors      []Person `json:"authors,omitempty"`
	Year         *string  `json:"year,omitempty"`
	Journal      *string  `json:"journal,omitempty"`
	Volume       *string  `json:"volume,omitempty"`
	Pages        *string  `json:"pages,omitempty"`
	DOI          *string  `json:"doi,omitempty"`
}

// Link returns a relationship link to the reference.
func (r Reference) Link() RelationshipLink {
	return RelationshipLink{Type: r.Type, ID: r.ID}
}
