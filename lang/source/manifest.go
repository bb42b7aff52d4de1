package source

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional per-project "zinc.yaml" descriptor, following the
// original implementation's project manifest shape
// (original_source/zinc-project): a name/version pair plus the declared
// application kind. LoadManifest only parses it; the source resolver does not
// read it, and nothing compares Kind with the entry point actually found.
type Manifest struct {
	Project ProjectInfo `yaml:"project"`
}

// ProjectInfo names and versions a Zinc project.
type ProjectInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Kind    string `yaml:"type"` // "circuit", "contract" or "library"
}

// LoadManifest reads "zinc.yaml" from dir, if present. A missing manifest is
// not an error: it returns (nil, nil).
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "zinc.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
