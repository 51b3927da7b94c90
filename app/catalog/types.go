package catalog

// Resource is a downloadable file advertised by the remote catalog.
type Resource struct {
	Name   string
	URL    string
	Format string
}

// packageSearchResponse mirrors the CKAN package_search payload, reduced to
// the fields the filter needs.
type packageSearchResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Results []struct {
			Resources []resourceEntry `json:"resources"`
		} `json:"results"`
	} `json:"result"`
}

type resourceEntry struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Format string `json:"format"`
}
