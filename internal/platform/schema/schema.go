// Package schema reflects Go types into JSON Schema documents.
package schema

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
)

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
}

// Reflect returns the inline schema of T.
func Reflect[T any]() *jsonschema.Schema {
	var v T
	return reflector().Reflect(v)
}

// ForOpenAI returns the schema of T as a map, with every object closed and
// every property required as strict structured output demands.
func ForOpenAI[T any]() map[string]any {
	m, err := toMap(Reflect[T]())
	if err != nil {
		panic(err)
	}
	closeObjects(m)
	return m
}

func toMap(s *jsonschema.Schema) (map[string]any, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func closeObjects(s map[string]any) {
	if t, ok := s[typeKey].(string); ok && t == "object" {
		s[additionalPropertiesKey] = false
		if props, ok := s[propertiesKey].(map[string]any); ok && len(props) > 0 {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			sort.Strings(required)
			s[requiredKey] = required
		}
	}
	if props, ok := s[propertiesKey].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				closeObjects(pm)
			}
		}
	}
	if items, ok := s[itemsKey].(map[string]any); ok {
		closeObjects(items)
	}
	if extra, ok := s[additionalPropertiesKey].(map[string]any); ok {
		closeObjects(extra)
	}
}
