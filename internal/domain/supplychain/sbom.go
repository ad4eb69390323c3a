package supplychain

// CycloneDX document constants.
const (
	BOMFormat   = "CycloneDX"
	SpecVersion = "1.5"

	// ProductName names the component the bill describes.
	ProductName = "mlgate"
)

// SBOM is a minimal CycloneDX bill of materials.
type SBOM struct {
	BOMFormat   string      `json:"bomFormat"`
	SpecVersion string      `json:"specVersion"`
	Version     int         `json:"version"`
	Metadata    Metadata    `json:"metadata"`
	Components  []Component `json:"components"`
}

// Metadata identifies the described build.
type Metadata struct {
	Component MetadataComponent `json:"component"`
}

// MetadataComponent names the product and the build it was scanned for.
type MetadataComponent struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// NewSBOM describes components for the build identified by buildID.
func NewSBOM(buildID string, components []Component) SBOM {
	if components == nil {
		components = []Component{}
	}
	return SBOM{
		BOMFormat:   BOMFormat,
		SpecVersion: SpecVersion,
		Version:     1,
		Metadata: Metadata{
			Component: MetadataComponent{Name: ProductName, Version: buildID},
		},
		Components: components,
	}
}
