package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeights(t *testing.T) {
	t.Parallel()

	t.Run("defaults validate", func(t *testing.T) {
		t.Parallel()
		w := DefaultWeights()
		assert.NoError(t, w.Validate())
		assert.InDelta(t, 1.0, w.Sum(), 1e-12)
	})

	t.Run("sum must be one", func(t *testing.T) {
		t.Parallel()
		w := Weights{CustomerSatisfaction: 0.5, ServiceDelivery: 0.3, ValueForRates: 0.2, Responsiveness: 0.1}
		err := w.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sum to 1")
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		t.Parallel()
		w := Weights{CustomerSatisfaction: 1.2, ServiceDelivery: -0.2}
		err := w.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service_delivery must be >= 0")
	})

	t.Run("engine rejects bad weights", func(t *testing.T) {
		t.Parallel()
		_, err := NewEngine(&fakeSignals{}, Weights{CustomerSatisfaction: 1.5})
		assert.Error(t, err)
	})
}
