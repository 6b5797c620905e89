package schema_test

import (
	"reflect"
	"testing"

	"focustrail/internal/platform/schema"
)

type nested struct {
	Name string `json:"name"`
}

type payload struct {
	Summary string   `json:"summary" jsonschema:"required"`
	Tags    []nested `json:"tags"`
	Note    string   `json:"note,omitempty"`
}

func TestForOpenAIClosesObjectsAndRequiresEverything(t *testing.T) {
	t.Parallel()
	m := schema.ForOpenAI[payload]()
	if m["additionalProperties"] != false {
		t.Fatalf("root object must be closed: %v", m["additionalProperties"])
	}
	required, ok := m["required"].([]string)
	if !ok {
		t.Fatalf("expected required list, got %T", m["required"])
	}
	if !reflect.DeepEqual(required, []string{"note", "summary", "tags"}) {
		t.Fatalf("expected all properties required in order, got %v", required)
	}
	props := m["properties"].(map[string]any)
	items := props["tags"].(map[string]any)["items"].(map[string]any)
	if items["additionalProperties"] != false {
		t.Fatalf("nested objects must be closed too")
	}
}

func TestReflectKeepsTagRequirements(t *testing.T) {
	t.Parallel()
	s := schema.Reflect[payload]()
	if len(s.Required) != 1 || s.Required[0] != "summary" {
		t.Fatalf("expected only tag-required fields, got %v", s.Required)
	}
}
