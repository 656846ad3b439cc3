package mapping

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileEntry is one table in a mapping file:
//
//	tables:
//	  device_status:
//	    backend: flat
//	    locator: device_status
//	    id_field: device_id
type fileEntry struct {
	Backend string `yaml:"backend"`
	Locator string `yaml:"locator"`
	IDField string `yaml:"id_field"`
}

type file struct {
	Tables map[string]fileEntry `yaml:"tables"`
}

// LoadFile reads a YAML mapping file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

func Load(r io.Reader) (*Table, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode mapping file: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("%w: no tables defined", ErrInvalidMapping)
	}

	mappings := make([]Mapping, 0, len(doc.Tables))
	for name, entry := range doc.Tables {
		kind, err := ParseKind(entry.Backend)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		locator := entry.Locator
		if locator == "" {
			locator = name
		}
		mappings = append(mappings, Mapping{
			Table:   name,
			Backend: Backend{Kind: kind, Locator: locator},
			IDField: entry.IDField,
		})
	}

	return New(mappings...)
}
