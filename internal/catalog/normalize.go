package catalog

import "go.uber.org/zap"

// Normalize converts a matched raw value into the metric's canonical form.
// When the definition carries a derivation formula it is evaluated against
// the named inputs and the derived value is returned with derived=true. Any
// failure - unknown metric, missing input, division by zero - falls back to
// the raw value unchanged, logged at warn level. Normalization never fails
// hard: a raw number is always better than nothing.
func (c *Catalog) Normalize(rawValue float64, canonicalName string, inputs map[string]float64) (value float64, derived bool) {
	expr, ok := c.formulas[canonicalName]
	if !ok {
		return rawValue, false
	}

	v, err := expr.Eval(inputs)
	if err != nil {
		zap.L().Warn("catalog: formula fallback to raw value",
			zap.String("metric", canonicalName),
			zap.String("formula", expr.Source()),
			zap.Error(err),
		)
		return rawValue, false
	}
	return v, true
}
