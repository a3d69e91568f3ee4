package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Match resolves a raw source key to a catalog definition through four tiers:
//
//  1. exact equality with a canonical name
//  2. case/separator-insensitive equality with any alternative name
//  3. the same insensitive equality against the region's synonym table
//  4. token-overlap similarity with a canonical name
//
// Earlier tiers strictly win. Definitions are scanned in catalog order, so
// tier results are deterministic. A nonexistent region just skips tier 3.
func (c *Catalog) Match(rawName, region string) (Definition, bool) {
	if i, ok := c.byName[rawName]; ok {
		return c.defs[i], true
	}

	normalized := normalizeName(rawName)

	for _, d := range c.defs {
		for _, alt := range d.AlternativeNames {
			if normalizeName(alt) == normalized {
				return d, true
			}
		}
	}

	if table := c.synonyms[region]; table != nil {
		for _, d := range c.defs {
			for _, alias := range table[d.CanonicalName] {
				if normalizeName(alias) == normalized {
					return d, true
				}
			}
		}
	}

	rawTokens := tokenSet(normalized)
	for _, d := range c.defs {
		if similarTokens(tokenSet(normalizeName(d.CanonicalName)), rawTokens) {
			return d, true
		}
	}

	return Definition{}, false
}

// normalizeName lowercases a metric name and folds separators to single
// spaces. NFKC folding first flattens spreadsheet artifacts such as
// non-breaking spaces and full-width characters.
func normalizeName(name string) string {
	s := norm.NFKC.String(name)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

// similarTokens applies the fuzzy acceptance rule: the intersection must
// cover at least 60% of the smaller token set.
func similarTokens(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	overlap := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			overlap++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(overlap) >= float64(smaller)*0.6
}
