package customfield

import (
	"encoding/json"
	"testing"

	"teamboard-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParse_PerKind(t *testing.T) {
	cases := []struct {
		name    string
		def     model.CustomFieldDefinition
		input   string
		want    any
		wantErr bool
	}{
		{"text", model.CustomFieldDefinition{FieldType: "text"}, "  hi  ", "hi", false},
		{"text too short", model.CustomFieldDefinition{FieldType: "text", Validation: &model.FieldValidation{MinLength: ptr(3)}}, "ab", nil, true},
		{"text pattern", model.CustomFieldDefinition{FieldType: "text", Validation: &model.FieldValidation{Pattern: `^[A-Z]+-\d+$`}}, "ENG-12", "ENG-12", false},
		{"textarea keeps spacing", model.CustomFieldDefinition{FieldType: "textarea"}, " a\nb ", " a\nb ", false},
		{"number", model.CustomFieldDefinition{FieldType: "number"}, "2.5", 2.5, false},
		{"number over max", model.CustomFieldDefinition{FieldType: "number", Validation: &model.FieldValidation{Max: ptr(10.0)}}, "11", nil, true},
		{"number junk", model.CustomFieldDefinition{FieldType: "number"}, "ten", nil, true},
		{"number NaN", model.CustomFieldDefinition{FieldType: "number"}, "NaN", nil, true},
		{"number infinity", model.CustomFieldDefinition{FieldType: "number", Validation: &model.FieldValidation{Min: ptr(0.0)}}, "+Inf", nil, true},
		{"number negative infinity", model.CustomFieldDefinition{FieldType: "number"}, "-inf", nil, true},
		{"date", model.CustomFieldDefinition{FieldType: "date"}, "2025-02-28", "2025-02-28", false},
		{"date invalid", model.CustomFieldDefinition{FieldType: "date"}, "2025-02-30", nil, true},
		{"select case-insensitive", model.CustomFieldDefinition{FieldType: "select", Options: []string{"Low", "High"}}, "high", "High", false},
		{"select unknown", model.CustomFieldDefinition{FieldType: "select", Options: []string{"Low"}}, "Mid", nil, true},
		{"multi", model.CustomFieldDefinition{FieldType: "multi_select", Options: []string{"a", "b"}}, "b, a, b", []string{"b", "a"}, false},
		{"checkbox", model.CustomFieldDefinition{FieldType: "checkbox"}, "Yes", true, false},
		{"checkbox junk", model.CustomFieldDefinition{FieldType: "checkbox"}, "maybe", nil, true},
		{"url", model.CustomFieldDefinition{FieldType: "url"}, "https://example.com/x", "https://example.com/x", false},
		{"url no scheme", model.CustomFieldDefinition{FieldType: "url"}, "example.com", nil, true},
		{"email", model.CustomFieldDefinition{FieldType: "email"}, "a@b.io", "a@b.io", false},
		{"email with name", model.CustomFieldDefinition{FieldType: "email"}, "A <a@b.io>", nil, true},
		{"user", model.CustomFieldDefinition{FieldType: "user"}, "#42", int64(42), false},
		{"unsupported", model.CustomFieldDefinition{FieldType: "formula"}, "1+1", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := For(tc.def).Parse(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_BlankInput(t *testing.T) {
	v, err := For(model.CustomFieldDefinition{Name: "Notes", FieldType: "text"}).Parse(" ")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = For(model.CustomFieldDefinition{Name: "Owner", FieldType: "user", Required: true}).Parse("")
	assert.ErrorIs(t, err, ErrRequired)
	assert.Contains(t, err.Error(), "Owner")

	tags := model.CustomFieldDefinition{Name: "Tags", FieldType: "multi_select", Options: []string{"a", "b"}}
	v, err = For(tags).Parse(", ,")
	require.NoError(t, err)
	assert.Nil(t, v)

	tags.Required = true
	_, err = For(tags).Parse(", ,")
	assert.ErrorIs(t, err, ErrRequired)
}

func TestRender(t *testing.T) {
	raw := func(s string) json.RawMessage { return json.RawMessage(s) }
	assert.Equal(t, "3", For(model.CustomFieldDefinition{FieldType: "number"}).Render(raw("3")))
	assert.Equal(t, "yes", For(model.CustomFieldDefinition{FieldType: "checkbox"}).Render(raw("true")))
	assert.Equal(t, "a, b", For(model.CustomFieldDefinition{FieldType: "multi_select"}).Render(raw(`["a","b"]`)))
	assert.Equal(t, "2025-01-02", For(model.CustomFieldDefinition{FieldType: "date"}).Render(raw(`"2025-01-02T10:00:00Z"`)))
	assert.Equal(t, "#7", For(model.CustomFieldDefinition{FieldType: "user"}).Render(raw("7")))
	assert.Equal(t, `{"x":1}`, For(model.CustomFieldDefinition{FieldType: "formula"}).Render(raw(`{"x":1}`)))
	assert.Equal(t, "", For(model.CustomFieldDefinition{FieldType: "text"}).Render(raw("null")))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(model.CustomFieldDefinition{FieldType: "multi_select"}))
	assert.False(t, IsSupported(model.CustomFieldDefinition{FieldType: "rollup"}))
}
