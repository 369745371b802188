package weaviate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate/entities/models"
)

func TestClassName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		collection string
		want       string
		hashed     bool
	}{
		{collection: "product_p1", want: "Product_p1"},
		{collection: "product_ABC_123", want: "Product_ABC_123"},
		{collection: "product_sku-9", want: "Product_sku_9_", hashed: true},
		{collection: "9lives", want: "C_lives_", hashed: true},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			t.Parallel()

			got := ClassName(tt.collection)
			if !tt.hashed && got != tt.want {
				t.Errorf("ClassName(%q) = %q, want %q", tt.collection, got, tt.want)
			}
			if tt.hashed && (!strings.HasPrefix(got, tt.want) || len(got) != len(tt.want)+8) {
				t.Errorf("ClassName(%q) = %q, want %q plus 8 hex chars", tt.collection, got, tt.want)
			}
		})
	}

	if ClassName("product_a-b") == ClassName("product_a.b") {
		t.Error("distinct collections mapped to the same class")
	}
}

func TestObjectID(t *testing.T) {
	t.Parallel()

	if objectID("p1_description") != objectID("p1_description") {
		t.Error("objectID not stable")
	}
	if objectID("p1_description") == objectID("p2_description") {
		t.Error("distinct documents share an object ID")
	}
	if id := objectID("p1_review_r1"); !strfmt.IsUUID5(id.String()) {
		t.Errorf("objectID is not a v5 UUID: %s", id)
	}
}

func TestParseObjects(t *testing.T) {
	t.Parallel()

	resp := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]any{
				"Product_p1": []any{
					map[string]any{
						propDocID:     "p1_review_r1",
						propText:      "Battery lasts two days.",
						propOrdinal:   float64(1),
						propMetadata:  `{"type":"review","rating":"4.0"}`,
						"_additional": map[string]any{"distance": 0.125, "vector": []any{0.5, -0.25}},
					},
					map[string]any{
						propDocID:   "p1_description",
						propText:    "Headphones",
						propOrdinal: float64(0),
					},
				},
			},
		},
	}

	got, err := parseObjects(resp, "Product_p1")
	if err != nil {
		t.Fatalf("parseObjects() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseObjects() returned %d records, want 2", len(got))
	}
	if got[0].ID != "p1_review_r1" || got[0].Ordinal != 1 || got[0].Distance != 0.125 {
		t.Errorf("first record = %+v", got[0])
	}
	if !reflect.DeepEqual(got[0].Vector, []float32{0.5, -0.25}) {
		t.Errorf("vector = %v", got[0].Vector)
	}
	if got[1].Vector != nil {
		t.Errorf("record without _additional has vector %v", got[1].Vector)
	}
	if got[0].Metadata["rating"] != "4.0" {
		t.Errorf("metadata = %v", got[0].Metadata)
	}
	if got[1].Metadata == nil {
		t.Error("missing metadata should decode to an empty map")
	}
}

func TestParseObjects_Errors(t *testing.T) {
	t.Parallel()

	resp := &models.GraphQLResponse{
		Errors: []*models.GraphQLError{{Message: `Cannot query field "Product_p9"`}},
	}
	if _, err := parseObjects(resp, "Product_p9"); err == nil || !strings.Contains(err.Error(), "Product_p9") {
		t.Errorf("parseObjects() error = %v", err)
	}
	if _, err := parseObjects(nil, "Product_p1"); err == nil {
		t.Error("parseObjects(nil) expected error")
	}

	empty, err := parseObjects(&models.GraphQLResponse{Data: map[string]models.JSONObject{}}, "Product_p1")
	if err != nil || len(empty) != 0 {
		t.Errorf("parseObjects(no data) = %v, %v", empty, err)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error")
	}
	if _, err := New(&Config{URL: "localhost"}); err == nil {
		t.Error("New() without scheme expected error")
	}
}
