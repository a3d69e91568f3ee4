// Package catalog holds the standardized metric definitions, the region
// synonym tables, and the matching and normalization logic that maps messy
// source keys onto canonical metrics.
package catalog

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/civicbench/council-cli/internal/formula"
	"github.com/civicbench/council-cli/internal/model"
)

// Definition describes one standardized metric.
type Definition struct {
	CanonicalName        string         `json:"canonical_name" yaml:"canonical_name"`
	DisplayName          string         `json:"display_name" yaml:"display_name"`
	Category             model.Category `json:"category" yaml:"category"`
	Description          string         `json:"description,omitempty" yaml:"description,omitempty"`
	Unit                 string         `json:"unit,omitempty" yaml:"unit,omitempty"`
	LowerIsBetter        bool           `json:"lower_is_better,omitempty" yaml:"lower_is_better,omitempty"`
	ExpectedAvailability float64        `json:"expected_availability" yaml:"expected_availability"`
	DerivationFormula    string         `json:"derivation_formula,omitempty" yaml:"derivation_formula,omitempty"`
	AlternativeNames     []string       `json:"alternative_names,omitempty" yaml:"alternative_names,omitempty"`
}

// PerCapita reports whether the metric is a per-capita quantity, the class
// eligible for peer estimation.
func (d Definition) PerCapita() bool {
	return strings.Contains(d.CanonicalName, "per_capita")
}

func (d Definition) validate() error {
	var errs []string
	if d.CanonicalName == "" {
		errs = append(errs, "canonical name is empty")
	}
	if !d.Category.Valid() {
		errs = append(errs, "unknown category "+string(d.Category))
	}
	if d.ExpectedAvailability < 0 || d.ExpectedAvailability > 1 {
		errs = append(errs, "expected availability outside [0,1]")
	}
	if len(errs) > 0 {
		return eris.Errorf("catalog: definition %q: %s", d.CanonicalName, strings.Join(errs, "; "))
	}
	return nil
}

// RegionSynonyms maps region -> canonical name -> locally used aliases.
type RegionSynonyms map[string]map[string][]string

// Catalog is an immutable, ordered registry of metric definitions. The
// construction order is the catalog order: tier-4 fuzzy matching and profile
// resolution both scan it front to back.
type Catalog struct {
	defs     []Definition
	byName   map[string]int
	synonyms RegionSynonyms
	formulas map[string]*formula.Expr
}

// New builds a catalog, validating every definition, precompiling every
// derivation formula, and checking that synonym tables only reference known
// canonical names.
func New(defs []Definition, synonyms RegionSynonyms) (*Catalog, error) {
	c := &Catalog{
		defs:     make([]Definition, len(defs)),
		byName:   make(map[string]int, len(defs)),
		synonyms: synonyms,
		formulas: make(map[string]*formula.Expr),
	}
	copy(c.defs, defs)

	for i, d := range c.defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[d.CanonicalName]; dup {
			return nil, eris.Errorf("catalog: duplicate canonical name %q", d.CanonicalName)
		}
		c.byName[d.CanonicalName] = i

		if d.DerivationFormula != "" {
			expr, err := formula.Parse(d.DerivationFormula)
			if err != nil {
				return nil, eris.Wrapf(err, "catalog: formula for %q", d.CanonicalName)
			}
			c.formulas[d.CanonicalName] = expr
		}
	}

	for region, table := range synonyms {
		for canonical := range table {
			if _, ok := c.byName[canonical]; !ok {
				return nil, eris.Errorf("catalog: region %q synonyms reference unknown metric %q", region, canonical)
			}
		}
	}

	return c, nil
}

// Lookup returns the definition for a canonical name.
func (c *Catalog) Lookup(canonicalName string) (Definition, bool) {
	i, ok := c.byName[canonicalName]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Definitions returns the definitions in catalog order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// ByCategory returns the definitions of one category, in catalog order.
func (c *Catalog) ByCategory(cat model.Category) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// RegionTable returns the synonym table for a region, or nil when the region
// has none.
func (c *Catalog) RegionTable(region string) map[string][]string {
	return c.synonyms[region]
}

// Regions lists the regions with synonym tables, sorted.
func (c *Catalog) Regions() []string {
	out := make([]string, 0, len(c.synonyms))
	for r := range c.synonyms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
