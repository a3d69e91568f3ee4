package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Value is one node of a raw source payload: a numeric leaf, a text leaf, or
// a nested map. Null leaves are represented by a nil Value. Arrays and
// booleans have no flat representation and are dropped at decode time.
type Value interface {
	rawValue()
}

// Number is a numeric leaf.
type Number float64

// Text is a string leaf. Text never enters the flat numeric map; it is kept
// only for unique-data descriptions.
type Text string

// RawMap is a nested string-keyed payload node.
type RawMap map[string]Value

func (Number) rawValue() {}
func (Text) rawValue()   {}
func (RawMap) rawValue() {}

// DecodeJSON parses a JSON object into a RawMap.
func DecodeJSON(data []byte) (RawMap, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "model: decode payload")
	}
	return fromAny(raw), nil
}

func fromAny(m map[string]any) RawMap {
	out := make(RawMap, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case float64:
			out[k] = Number(t)
		case string:
			out[k] = Text(t)
		case map[string]any:
			out[k] = fromAny(t)
		case nil:
			out[k] = nil
		}
	}
	return out
}

// UnmarshalJSON decodes a JSON object node into m.
func (m *RawMap) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// Flatten walks the payload depth-first, joining nested keys with
// underscores. Numeric leaves land in the first map, text leaves in the
// second. Null leaves are skipped: null means unavailable.
func (m RawMap) Flatten() (map[string]float64, map[string]string) {
	nums := make(map[string]float64)
	texts := make(map[string]string)
	m.flattenInto("", nums, texts)
	return nums, texts
}

func (m RawMap) flattenInto(prefix string, nums map[string]float64, texts map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch t := v.(type) {
		case Number:
			nums[key] = float64(t)
		case Text:
			texts[key] = string(t)
		case RawMap:
			t.flattenInto(key, nums, texts)
		}
	}
}
