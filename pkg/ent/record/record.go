// Package record describes crystal-structure entries as they come from the
// structural database. Records are read-only: nothing in csdoptimade
// modifies them after they are read.
package record

import "time"

// Record is one crystal-structure entry of the structural database.
// Every crystallographic or bibliographic attribute is optional, the mapping
// code branches on presence instead of failing on missing data.
type Record struct {
	// Identifier is the stable primary key of the entry (CSD refcode).
	Identifier string `json:"identifier"`

	// Formula is the formula of the whole entry, for example
	// "C18 H12 Br3 N1" or a multi-component "C20 H25 N2 S2 1+,C4 H3 O4 1-".
	Formula *string `json:"formula,omitempty"`

	// ChemicalName is the name of the compound as given by the database.
	ChemicalName *string `json:"chemical_name,omitempty"`

	// DepositionDate is the date when the structure was deposited.
	DepositionDate *time.Time `json:"deposition_date,omitempty"`

	// CCDCNumber is the CCDC deposition number.
	CCDCNumber *int `json:"ccdc_number,omitempty"`

	// HasDisorder is true if the structure is flagged as disordered.
	HasDisorder bool `json:"has_disorder,omitempty"`

	// DisorderDetails is a human-readable description of the disorder.
	DisorderDetails *string `json:"disorder_details,omitempty"`

	// Remarks are free-text remarks about the entry.
	Remarks *string `json:"remarks,omitempty"`

	// InChIs are the InChI identifiers of the entry components.
	InChIs []InChI `json:"inchis,omitempty"`

	// SMILES string of the entry.
	SMILES *string `json:"smiles,omitempty"`

	// Has3DStructure is true when atomic coordinates are available.
	Has3DStructure bool `json:"has_3d_structure,omitempty"`

	// Crystal contains the crystallographic data of the entry.
	Crystal *Crystal `json:"crystal,omitempty"`

	// Publications are the publications attached to the entry.
	Publications []Publication `json:"publications,omitempty"`
}

// InChI is an InChI string with its hashed key.
type InChI struct {
	String string `json:"string"`
	Key    string `json:"key,omitempty"`
}

// Crystal holds the crystallographic data of an entry.
type Crystal struct {
	CellLengths *CellLengths `json:"cell_lengths,omitempty"`
	CellAngles  *CellAngles  `json:"cell_angles,omitempty"`

	// CellVolume is the volume of the unit cell in cubic angstroms.
	CellVolume *float64 `json:"cell_volume,omitempty"`

	// SpaceGroupSymbol is the Hermann-Mauguin symbol of the space group.
	SpaceGroupSymbol *string `json:"space_group_symbol,omitempty"`

	// SpaceGroupNumber is nil if the database could not resolve
	// the space group.
	SpaceGroupNumber *int `json:"space_group_number,omitempty"`

	CrystalSystem *string `json:"crystal_system,omitempty"`

	// ZValue is the number of formula units in the unit cell.
	ZValue *int `json:"z_value,omitempty"`

	// ZPrime is the number of formula units in the asymmetric unit. It can
	// be fractional.
	ZPrime *float64 `json:"z_prime,omitempty"`

	// Formula of the crystal, usually the same as the entry formula. It is
	// used when the entry has no formula of its own.
	Formula *string `json:"formula,omitempty"`

	// AsymmetricUnit is the asymmetric unit molecule.
	AsymmetricUnit *Molecule `json:"asymmetric_unit,omitempty"`

	// Packed is the molecule of the packed unit cell.
	Packed *Molecule `json:"packed,omitempty"`
}

// CellLengths are lattice lengths in angstroms.
type CellLengths struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// CellAngles are lattice angles in degrees.
type CellAngles struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Molecule is a list of atoms.
type Molecule struct {
	Atoms []Atom `json:"atoms,omitempty"`
}

// Atom is a site of a molecule.
type Atom struct {
	// Symbol is the atomic symbol. Deuterium is given as "D".
	Symbol string `json:"symbol"`

	// Coordinates are Cartesian coordinates in angstroms, nil if unknown.
	Coordinates *Vector `json:"coordinates,omitempty"`
}

// Vector is a point in Cartesian space.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Publication is a bibliographic record attached to an entry.
type Publication struct {
	// Authors is a comma-separated list of author names.
	Authors   *string `json:"authors,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Journal   *string `json:"journal,omitempty"`
	Volume    *string `json:"volume,omitempty"`
	FirstPage *string `json:"first_page,omitempty"`
	DOI       *string `json:"doi,omitempty"`
}
