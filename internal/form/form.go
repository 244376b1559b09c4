package form

import (
	"fmt"
)

// FieldType selects which fixed validator applies to a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

// Field describes one questionnaire form input.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	// Options constrains select fields to a fixed value set.
	Options []string
	// MaxLen caps text and textarea input; 0 applies the type default.
	MaxLen int
}

const (
	defaultTextMaxLen     = 500
	defaultTextareaMaxLen = 5000
)

// Validator checks a single submitted value.
type Validator func(value string) error

// Schema is a compiled set of field validators. It is built once from the
// field descriptors, not re-derived per submission.
type Schema struct {
	fields     []Field
	validators map[string]Validator
}

// Compile builds the validator table for a field list. Unknown field types
// and duplicate names are configuration errors.
func Compile(fields []Field) (*Schema, error) {
	validators := make(map[string]Validator, len(fields))

	for _, field := range fields {
		if field.Name == "" {
			return nil, fmt.Errorf("form: field with empty name")
		}
		if _, dup := validators[field.Name]; dup {
			return nil, fmt.Errorf("form: duplicate field %q", field.Name)
		}

		validator, err := validatorFor(field)
		if err != nil {
			return nil, err
		}
		validators[field.Name] = validator
	}

	return &Schema{fields: append([]Field(nil), fields...), validators: validators}, nil
}

// Fields returns the descriptors the schema was compiled from.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Validate checks submitted values against the compiled schema. The result
// maps field names to their validation errors; an empty map means the values
// are acceptable. Values for unknown fields are ignored.
func (s *Schema) Validate(values map[string]string) map[string]error {
	problems := make(map[string]error)
	for name, validate := range s.validators {
		if err := validate(values[name]); err != nil {
			problems[name] = err
		}
	}
	return problems
}

func validatorFor(field Field) (Validator, error) {
	switch field.Type {
	case FieldText:
		return textValidator(field, defaultTextMaxLen), nil
	case FieldTextarea:
		return textValidator(field, defaultTextareaMaxLen), nil
	case FieldSelect:
		return selectValidator(field), nil
	case FieldCheckbox:
		return checkboxValidator(field), nil
	default:
		return nil, fmt.Errorf("form: field %q has unknown type %q", field.Name, field.Type)
	}
}

func textValidator(field Field, defaultMax int) Validator {
	maxLen := field.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMax
	}
	return func(value string) error {
		if value == "" {
			if field.Required {
				return fmt.Errorf("%s is required", field.Name)
			}
			return nil
		}
		if len(value) > maxLen {
			return fmt.Errorf("%s exceeds %d characters", field.Name, maxLen)
		}
		return nil
	}
}

func selectValidator(field Field) Validator {
	allowed := make(map[string]struct{}, len(field.Options))
	for _, option := range field.Options {
		allowed[option] = struct{}{}
	}
	return func(value string) error {
		if value == "" {
			if field.Required {
				return fmt.Errorf("%s is required", field.Name)
			}
			return nil
		}
		if _, ok := allowed[value]; !ok {
			return fmt.Errorf("%s has no option %q", field.Name, value)
		}
		return nil
	}
}

func checkboxValidator(field Field) Validator {
	return func(value string) error {
		switch value {
		case "", "true", "false":
		default:
			return fmt.Errorf("%s must be true or false", field.Name)
		}
		if field.Required && value != "true" {
			return fmt.Errorf("%s must be checked", field.Name)
		}
		return nil
	}
}
