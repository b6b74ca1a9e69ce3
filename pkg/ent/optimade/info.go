package optimade

// APIVersion is the version of the OPTIMADE API the output conforms to.
const APIVersion = "1.2.0"

// Header is the first line of the merged file.
type Header struct {
	XOptimade HeaderMeta `json:"x-optimade"`
}

// HeaderMeta keeps the API version of the file.
type HeaderMeta struct {
	Meta struct {
		APIVersion string `json:"api_version"`
	} `json:"meta"`
}

// NewHeader creates a Header for the given API version.
func NewHeader(version string) Header {
	var res Header
	res.XOptimade.Meta.APIVersion = version
	return res
}

// Provider describes the database provider.
type Provider struct {
	Prefix      string `json:"prefix"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Homepage    string `json:"homepage,omitempty"`
}

// DefaultProvider returns the provider information of the structural
// database.
func DefaultProvider() Provider {
	return Provider{
		Prefix: Prefix,
		Name:   "Cambridge Structural Database",
		Description: "A database of experimentally determined organic and " +
			"metal-organic crystal structures.",
		Homepage: "https://www.ccdc.cam.ac.uk",
	}
}

// InfoLine is the second line of the merged file.
type InfoLine struct {
	Data Info `json:"data"`
}

// Info is the base info resource of the API.
type Info struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes InfoAttributes `json:"attributes"`
}

// InfoAttributes describe the API.
type InfoAttributes struct {
	APIVersion           string              `json:"api_version"`
	AvailableAPIVersions []APIVersionURL     `json:"available_api_versions"`
	Formats              []string            `json:"formats"`
	AvailableEndpoints   []string            `json:"available_endpoints"`
	EntryTypesByFormat   map[string][]string `json:"entry_types_by_format"`
	IsIndex              bool                `json:"is_index"`
	Provider             Provider            `json:"provider"`
}

// APIVersionURL is a served version of the API.
type APIVersionURL struct {
	URL     string `json:"url"`
	Version string `json:"version"`
}

// NewInfo creates the info resource.
func NewInfo(version string, p Provider) Info {
	return Info{
		ID:   "/",
		Type: "info",
		Attributes: InfoAttributes{
			APIVersion: version,
			AvailableAPIVersions: []APIVersionURL{
				{URL: "/v" + MajorVersion(version), Version: version},
			},
			Formats:            []string{"json"},
			AvailableEndpoints: []string{"info", "links", StructuresType, ReferencesType},
			EntryTypesByFormat: map[string][]string{"json": EntryTypes},
			Provider:           p,
		},
	}
}

// MajorVersion returns the major part of a version like "1.2.0".
func MajorVersion(v string) string {
	for i := range v {
		if v[i] == '.' {
			return v[:i]
		}
	}
	return v
}

// EntryInfo describes properties of one entry type.
type EntryInfo struct {
	Description          string              `json:"description"`
	Properties           map[string]Property `json:"properties"`
	Formats              []string            `json:"formats"`
	OutputFieldsByFormat map[string][]string `json:"output_fields_by_format"`
}

// Property is a definition of a provider field.
type Property struct {
	Name        string `json:"-"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Unit        string `json:"unit,omitempty"`
	Sortable    bool   `json:"sortable"`
}

// NewEntryInfo creates EntryInfo for an entry type from its provider
// fields. Field names are prefixed with the provider namespace.
func NewEntryInfo(entryType string, props []Property) EntryInfo {
	res := EntryInfo{
		Description:          entryType,
		Properties:           make(map[string]Property, len(props)),
		Formats:              []string{"json"},
		OutputFieldsByFormat: map[string][]string{"json": {}},
	}
	for _, p := range props {
		name := "_" + Prefix + "_" + p.Name
		res.Properties[name] = p
		res.OutputFieldsByFormat["json"] = append(
			res.OutputFieldsByFormat["json"], name,
		)
	}
	return res
}
