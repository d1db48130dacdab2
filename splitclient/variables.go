package splitclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	kameleoon "github.com/kameleoon/openfeature-go-provider"
)

// parseVariables decodes a treatment configuration into variables, one per
// member of the top-level JSON object. A nil or empty configuration has no
// variables.
func parseVariables(config *string) (map[string]kameleoon.Variable, error) {
	variables := make(map[string]kameleoon.Variable)
	if config == nil || *config == "" {
		return variables, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(*config)))
	dec.UseNumber()

	var members map[string]any
	if err := dec.Decode(&members); err != nil {
		return nil, fmt.Errorf("configuration must be a JSON object: %w", err)
	}

	for key, raw := range members {
		value := normalize(raw)
		variables[key] = kameleoon.Variable{
			Key:   key,
			Type:  variableType(value),
			Value: value,
		}
	}
	return variables, nil
}

// normalize replaces json.Number with int64 when the number is integral and
// float64 otherwise.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return t
	}
}

func variableType(v any) string {
	switch v.(type) {
	case bool:
		return kameleoon.VariableTypeBoolean
	case int64, float64:
		return kameleoon.VariableTypeNumber
	case string:
		return kameleoon.VariableTypeString
	default:
		return kameleoon.VariableTypeJSON
	}
}
