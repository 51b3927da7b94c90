package sources

// Source describes one catalog query: which datasets to look for and how
// to recognize the resources worth downloading.
type Source struct {
	Name           string   `yaml:"name"`
	Query          string   `yaml:"query"`
	Keywords       []string `yaml:"keywords"`
	EnglishMarkers []string `yaml:"english_markers"`
	FrenchMarkers  []string `yaml:"french_markers"`
	Formats        []string `yaml:"formats"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}
