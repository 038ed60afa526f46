// Package forms holds the custom-form registry and the schema validator for
// form-constrained content payloads.
//
// Forms are immutable configuration loaded from embedded YAML at startup.
// They never mutate at runtime, so the validation rules a document was
// created under cannot change retroactively.
package forms

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Property declares the expected JSON shape of one content field.
type Property struct {
	Type  string     `yaml:"type"`
	Title string     `yaml:"title"`
	AnyOf []Property `yaml:"anyOf"`
}

// Block is a UI field grouping; it has no validation meaning.
type Block struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// FieldSpec is a form's field schema: required fields, rich-text fields,
// comment-eligible fields, UI groupings and per-field shape declarations.
type FieldSpec struct {
	Required      []string            `yaml:"required"`
	RichText      []string            `yaml:"richText"`
	AllowComments []string            `yaml:"allowComments"`
	Blocks        []Block             `yaml:"blocks"`
	Properties    map[string]Property `yaml:"properties"`
}

// AllowsCommentsOn reports whether the field accepts comments.
func (f FieldSpec) AllowsCommentsOn(field string) bool {
	for _, name := range f.AllowComments {
		if name == field {
			return true
		}
	}
	return false
}

// Form is one custom-form definition, resolved by slug.
type Form struct {
	Slug   string    `yaml:"slug"`
	Name   string    `yaml:"name"`
	Fields FieldSpec `yaml:"fields"`
}

// Registry resolves custom forms by slug.
type Registry struct {
	forms map[string]*Form
	mu    sync.RWMutex
}

// NewRegistry loads the embedded form definitions.
func NewRegistry() (*Registry, error) {
	r := &Registry{forms: make(map[string]*Form)}
	for _, name := range []string{"project", "user-profile"} {
		if err := r.loadFormFile(name); err != nil {
			return nil, fmt.Errorf("load %s form: %w", name, err)
		}
	}
	return r, nil
}

func (r *Registry) loadFormFile(name string) error {
	data, err := configFiles.ReadFile(fmt.Sprintf("config/%s.yaml", name))
	if err != nil {
		return fmt.Errorf("read form file: %w", err)
	}

	var form Form
	if err := yaml.Unmarshal(data, &form); err != nil {
		return fmt.Errorf("unmarshal form file: %w", err)
	}
	if form.Slug == "" {
		return fmt.Errorf("form file %s has no slug", name)
	}

	r.mu.Lock()
	r.forms[form.Slug] = &form
	r.mu.Unlock()
	return nil
}

// Lookup resolves a form by slug. Unknown slugs return false.
func (r *Registry) Lookup(slug string) (*Form, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	form, ok := r.forms[slug]
	return form, ok
}
