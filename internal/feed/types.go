package feed

// catalogResponse is the top-level JSON document of the known-exploited
// vulnerability catalog.
type catalogResponse struct {
	Title           string         `json:"title"`
	CatalogVersion  string         `json:"catalogVersion"`
	DateReleased    string         `json:"dateReleased"`
	Count           int            `json:"count"`
	Vulnerabilities []catalogEntry `json:"vulnerabilities"`
}

// catalogEntry is a single vulnerability entry in the catalog.
type catalogEntry struct {
	CVEID             string `json:"cveID"`
	VendorProject     string `json:"vendorProject"`
	Product           string `json:"product"`
	VulnerabilityName string `json:"vulnerabilityName"`
	DateAdded         string `json:"dateAdded"`
	ShortDescription  string `json:"shortDescription"`
}

// cveResponse is the per-CVE lookup document from the vulnerability
// database endpoint.
type cveResponse struct {
	TotalResults    int              `json:"totalResults"`
	Vulnerabilities []cveItemWrapper `json:"vulnerabilities"`
}

type cveItemWrapper struct {
	CVE cveItem `json:"cve"`
}

type cveItem struct {
	ID        string `json:"id"`
	Published string `json:"published"`
}
