package forms

import (
	"fmt"
	"sort"

	"participa/internal/domain"
)

// Validate checks a content payload against a field schema. It rejects
// unknown fields (the schema is closed), missing required fields, and values
// whose shape does not match the declared property type. Violations are
// collected into a single domain.SchemaError so callers see every problem at
// once.
func Validate(spec FieldSpec, payload map[string]interface{}) error {
	var fieldErrs []domain.FieldError

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop, ok := spec.Properties[key]
		if !ok {
			fieldErrs = append(fieldErrs, domain.FieldError{Field: key, Detail: "is not a declared field"})
			continue
		}
		if err := checkShape(prop, payload[key]); err != nil {
			fieldErrs = append(fieldErrs, domain.FieldError{Field: key, Detail: err.Error()})
		}
	}

	for _, req := range spec.Required {
		if _, ok := payload[req]; !ok {
			fieldErrs = append(fieldErrs, domain.FieldError{Field: req, Detail: "is required"})
		}
	}

	if len(fieldErrs) > 0 {
		return &domain.SchemaError{Fields: fieldErrs}
	}
	return nil
}

func checkShape(prop Property, value interface{}) error {
	if len(prop.AnyOf) > 0 {
		for _, alt := range prop.AnyOf {
			if checkShape(alt, value) == nil {
				return nil
			}
		}
		return fmt.Errorf("matches none of the allowed shapes")
	}

	switch prop.Type {
	case "", "any":
		return nil
	case "null":
		if value != nil {
			return fmt.Errorf("must be null")
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("must be a string")
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("must be a boolean")
		}
	case "number", "integer":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("must be a number")
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("must be an object")
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("must be an array")
		}
	default:
		return fmt.Errorf("has unknown declared type %q", prop.Type)
	}
	return nil
}
