package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads source definitions from a YAML file. A missing file is not an
// error: the built-in LMIA source is returned so a fresh deployment works
// without any configuration.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Source{DefaultSource()}, nil
		}
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if len(file.Sources) == 0 {
		return []Source{DefaultSource()}, nil
	}

	for i := range file.Sources {
		setDefaults(&file.Sources[i])
		if err := validate(&file.Sources[i]); err != nil {
			return nil, fmt.Errorf("invalid source %q: %w", file.Sources[i].Name, err)
		}
	}

	return file.Sources, nil
}

// DefaultSource targets the LMIA employer datasets on open.canada.ca.
func DefaultSource() Source {
	return Source{
		Name:           "lmia-noc",
		Query:          "lmia",
		Keywords:       []string{"national occupational classification (noc)", "positive"},
		EnglishMarkers: []string{"_en", "en"},
		FrenchMarkers:  []string{"_fr", "fra"},
		Formats:        []string{"csv", "xlsx", "xls"},
	}
}

func setDefaults(s *Source) {
	def := DefaultSource()
	if len(s.EnglishMarkers) == 0 {
		s.EnglishMarkers = def.EnglishMarkers
	}
	if len(s.FrenchMarkers) == 0 {
		s.FrenchMarkers = def.FrenchMarkers
	}
	if len(s.Formats) == 0 {
		s.Formats = def.Formats
	}
}

func validate(s *Source) error {
	if s.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if s.Query == "" {
		return fmt.Errorf("catalog query is required")
	}
	return nil
}
