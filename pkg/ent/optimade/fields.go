package optimade

// ProviderFields returns definitions of provider-specific fields per entry
// type. Names are given without the "_csd_" prefix.
func ProviderFields() map[string][]Property {
	return map[string][]Property{
		StructuresType: {
			{Name: "chemical_name", Type: "string",
				Description: "The name of the chemical as given in the CSD."},
			{Name: "cell_volume", Type: "float", Unit: "angstrom^3",
				Description: "The volume of the unit cell in cubic angstroms."},
			{Name: "lattice_parameter_a", Type: "float", Unit: "angstrom",
				Description: "The a lattice parameter in angstroms."},
			{Name: "lattice_parameter_b", Type: "float", Unit: "angstrom",
				Description: "The b lattice parameter in angstroms."},
			{Name: "lattice_parameter_c", Type: "float", Unit: "angstrom",
				Description: "The c lattice parameter in angstroms."},
			{Name: "lattice_parameter_alpha", Type: "float", Unit: "degree",
				Description: "The alpha lattice parameter in degrees."},
			{Name: "lattice_parameter_beta", Type: "float", Unit: "degree",
				Description: "The beta lattice parameter in degrees."},
			{Name: "lattice_parameter_gamma", Type: "float", Unit: "degree",
				Description: "The gamma lattice parameter in degrees."},
			{Name: "crystal_system", Type: "string",
				Description: "The crystal system of the structure."},
			{Name: "deposition_date", Type: "timestamp",
				Description: "The date the structure was deposited."},
			{Name: "disorder_details", Type: "string",
				Description: "Human-readable details of any disorder in the structure."},
			{Name: "ccdc_number", Type: "integer",
				Description: "The CCDC deposition ID."},
			{Name: "space_group_symbol_hermann_mauginn", Type: "string",
				Description: "The space group symbol for the crystal, " +
					"following the Hermann-Mauguin notation."},
			{Name: "inchi", Type: "list",
				Description: "CSD InChI strings of the entry components."},
			{Name: "inchi_key", Type: "list",
				Description: "CSD InChIKeys of the entry components."},
			{Name: "smiles", Type: "string",
				Description: "CSD SMILES string."},
			{Name: "z_value", Type: "integer",
				Description: "The number of formula units in the unit cell."},
			{Name: "z_prime", Type: "float",
				Description: "The number of formula units in the asymmetric unit."},
			{Name: "remarks", Type: "string",
				Description: "Free-text remarks about the structure."},
		},
		ReferencesType: {},
	}
}
