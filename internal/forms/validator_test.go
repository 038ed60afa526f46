package forms

import (
	"testing"

	"github.com/stretchr/testify/require"
	"participa/internal/domain"
)

func projectSpec(t *testing.T) FieldSpec {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	form, ok := r.Lookup("project-form")
	require.True(t, ok)
	return form.Fields
}

func TestRegistryLoadsEmbeddedForms(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	form, ok := r.Lookup("project-form")
	require.True(t, ok)
	require.Equal(t, "Project", form.Name)
	require.True(t, form.Fields.AllowsCommentsOn("articles"))
	require.False(t, form.Fields.AllowsCommentsOn("title"))

	_, ok = r.Lookup("no-such-form")
	require.False(t, ok)

	profile, ok := r.Lookup("user-profile")
	require.True(t, ok)
	require.Empty(t, profile.Fields.Required)
}

func TestValidateAcceptsWellFormedContent(t *testing.T) {
	spec := projectSpec(t)
	err := Validate(spec, map[string]interface{}{
		"title":                "Water access",
		"fundation":            map[string]interface{}{"text": "..."},
		"articles":             map[string]interface{}{"1": "..."},
		"closingDate":          "2030-01-01",
		"imageCover":           nil,
		"tags":                 []interface{}{"tag-1"},
		"sendTagsNotification": true,
	})
	require.NoError(t, err)
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	spec := projectSpec(t)
	err := Validate(spec, map[string]interface{}{
		"title":  7,             // wrong shape
		"rogue":  "not allowed", // undeclared
		"fundation": map[string]interface{}{},
		// articles missing although required
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Fields, 3)

	fields := make([]string, len(schemaErr.Fields))
	for i, fe := range schemaErr.Fields {
		fields[i] = fe.Field
	}
	require.Contains(t, fields, "title")
	require.Contains(t, fields, "rogue")
	require.Contains(t, fields, "articles")
}

func TestValidateAnyOfAcceptsNullOrShape(t *testing.T) {
	spec := projectSpec(t)
	base := map[string]interface{}{
		"title":     "A",
		"fundation": map[string]interface{}{},
		"articles":  map[string]interface{}{},
	}

	base["closingDate"] = nil
	require.NoError(t, Validate(spec, base))

	base["closingDate"] = "2030-01-01"
	require.NoError(t, Validate(spec, base))

	base["closingDate"] = 42
	require.ErrorIs(t, Validate(spec, base), domain.ErrValidation)
}
