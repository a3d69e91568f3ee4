package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Overlay is a YAML document merged over the builtin catalog. Deployments
// use it to add locally tracked metrics or extra region alias packs without
// rebuilding.
type Overlay struct {
	Metrics        []Definition   `yaml:"metrics"`
	RegionSynonyms RegionSynonyms `yaml:"region_synonyms"`
}

// LoadOverlay reads an overlay document from a YAML file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read overlay %s", path)
	}

	// The YAML has a top-level "catalog" key.
	var wrapper struct {
		Catalog Overlay `yaml:"catalog"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalog: parse overlay")
	}
	return &wrapper.Catalog, nil
}

// Load builds the catalog for a deployment: the builtin set, with the
// overlay at path merged over it. An empty path returns the builtin catalog.
func Load(path string) (*Catalog, error) {
	defs := BuiltinDefinitions()
	synonyms := BuiltinRegionSynonyms()

	if path != "" {
		overlay, err := LoadOverlay(path)
		if err != nil {
			return nil, err
		}
		defs, synonyms = merge(defs, synonyms, overlay)
	}

	return New(defs, synonyms)
}

// merge applies an overlay: definitions replace builtins with the same
// canonical name in place (catalog order is preserved), new ones append in
// overlay order; synonym lists append per region and metric.
func merge(defs []Definition, synonyms RegionSynonyms, overlay *Overlay) ([]Definition, RegionSynonyms) {
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.CanonicalName] = i
	}
	for _, d := range overlay.Metrics {
		if i, ok := index[d.CanonicalName]; ok {
			defs[i] = d
			continue
		}
		index[d.CanonicalName] = len(defs)
		defs = append(defs, d)
	}

	for region, table := range overlay.RegionSynonyms {
		if synonyms[region] == nil {
			synonyms[region] = make(map[string][]string, len(table))
		}
		for canonical, aliases := range table {
			synonyms[region][canonical] = append(synonyms[region][canonical], aliases...)
		}
	}

	return defs, synonyms
}
