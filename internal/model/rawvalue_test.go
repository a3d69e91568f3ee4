package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	t.Run("nested objects and mixed leaves", func(t *testing.T) {
		t.Parallel()
		m, err := DecodeJSON([]byte(`{
			"finance": {"rates_revenue": 4500000, "note": "audited"},
			"population": 12000,
			"missing": null
		}`))
		require.NoError(t, err)

		finance, ok := m["finance"].(RawMap)
		require.True(t, ok)
		assert.Equal(t, Number(4500000), finance["rates_revenue"])
		assert.Equal(t, Text("audited"), finance["note"])
		assert.Equal(t, Number(12000), m["population"])

		v, present := m["missing"]
		assert.True(t, present)
		assert.Nil(t, v)
	})

	t.Run("arrays and booleans are dropped", func(t *testing.T) {
		t.Parallel()
		m, err := DecodeJSON([]byte(`{"tags": ["a", "b"], "audited": true, "score": 7}`))
		require.NoError(t, err)
		assert.NotContains(t, m, "tags")
		assert.NotContains(t, m, "audited")
		assert.Equal(t, Number(7), m["score"])
	})

	t.Run("non-object input fails", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeJSON([]byte(`[1, 2, 3]`))
		assert.Error(t, err)
	})
}

func TestRawMapFlatten(t *testing.T) {
	t.Parallel()

	t.Run("joins nested keys with underscores", func(t *testing.T) {
		t.Parallel()
		m := RawMap{
			"waste": RawMap{
				"recycling": RawMap{"rate": Number(54.2)},
				"collected_tonnes": Number(80000),
			},
			"population": Number(95000),
		}
		nums, texts := m.Flatten()
		assert.Equal(t, map[string]float64{
			"waste_recycling_rate":   54.2,
			"waste_collected_tonnes": 80000,
			"population":             95000,
		}, nums)
		assert.Empty(t, texts)
	})

	t.Run("null leaves are skipped", func(t *testing.T) {
		t.Parallel()
		m := RawMap{"known": Number(1), "unknown": nil}
		nums, _ := m.Flatten()
		assert.Equal(t, map[string]float64{"known": 1}, nums)
	})

	t.Run("text leaves are kept separately", func(t *testing.T) {
		t.Parallel()
		m := RawMap{
			"program": RawMap{"name": Text("Urban Forest Strategy"), "trees_planted": Number(1200)},
		}
		nums, texts := m.Flatten()
		assert.Equal(t, map[string]float64{"program_trees_planted": 1200}, nums)
		assert.Equal(t, map[string]string{"program_name": "Urban Forest Strategy"}, texts)
	})
}

func TestRawMapJSONRoundTrip(t *testing.T) {
	t.Parallel()

	var payload SourcePayload
	err := json.Unmarshal([]byte(`{
		"council_id": "c-1",
		"source": "annual_report",
		"data": {"finance": {"rates_revenue": 1000}, "label": "draft"}
	}`), &payload)
	require.NoError(t, err)

	finance, ok := payload.Data["finance"].(RawMap)
	require.True(t, ok)
	assert.Equal(t, Number(1000), finance["rates_revenue"])

	out, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"finance": {"rates_revenue": 1000}, "label": "draft"}`, string(out))
}
