package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Weights splits the overall score across the four components.
type Weights struct {
	CustomerSatisfaction float64 `json:"customer_satisfaction" mapstructure:"customer_satisfaction"`
	ServiceDelivery      float64 `json:"service_delivery" mapstructure:"service_delivery"`
	ValueForRates        float64 `json:"value_for_rates" mapstructure:"value_for_rates"`
	Responsiveness       float64 `json:"responsiveness" mapstructure:"responsiveness"`
}

// DefaultWeights returns the standard component split.
func DefaultWeights() Weights {
	return Weights{
		CustomerSatisfaction: 0.4,
		ServiceDelivery:      0.3,
		ValueForRates:        0.2,
		Responsiveness:       0.1,
	}
}

// Sum returns the total of all component weights.
func (w Weights) Sum() float64 {
	return w.CustomerSatisfaction + w.ServiceDelivery + w.ValueForRates + w.Responsiveness
}

// Validate checks that the weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	var errs []string

	components := map[string]float64{
		"customer_satisfaction": w.CustomerSatisfaction,
		"service_delivery":      w.ServiceDelivery,
		"value_for_rates":       w.ValueForRates,
		"responsiveness":        w.Responsiveness,
	}
	for name, v := range components {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if sum := w.Sum(); math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Sprintf("weights must sum to 1, got %v", sum))
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: weight validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
