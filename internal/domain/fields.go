package domain

import "fmt"

// Form field types an event may declare for its registration form.
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeDropdown = "dropdown"
	FieldTypeCheckbox = "checkbox"
)

// FieldSpec declares one field of an event's registration form schema.
// swagger:model FieldSpec
type FieldSpec struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"` // dropdown only
}

// ValidateFieldData checks a registration form payload against the event's
// declared field schema: required fields present, values match the declared
// type, dropdown values are among the declared options. Unknown keys are
// rejected so arbitrary data cannot be smuggled into the payload.
func ValidateFieldData(fields []FieldSpec, data map[string]any) error {
	byKey := make(map[string]FieldSpec, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	for key := range data {
		if _, ok := byKey[key]; !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidInput, key)
		}
	}

	for _, f := range fields {
		value, present := data[f.Key]
		if !present || value == nil {
			if f.Required {
				return fmt.Errorf("%w: field %q is required", ErrInvalidInput, f.Key)
			}
			continue
		}
		if err := validateFieldValue(f, value); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldValue(f FieldSpec, value any) error {
	switch f.Type {
	case FieldTypeText:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: field %q must be a string", ErrInvalidInput, f.Key)
		}
		if f.Required && s == "" {
			return fmt.Errorf("%w: field %q is required", ErrInvalidInput, f.Key)
		}
	case FieldTypeNumber:
		// JSON numbers decode as float64.
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("%w: field %q must be a number", ErrInvalidInput, f.Key)
		}
	case FieldTypeDropdown:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: field %q must be a string", ErrInvalidInput, f.Key)
		}
		for _, opt := range f.Options {
			if s == opt {
				return nil
			}
		}
		return fmt.Errorf("%w: field %q value %q is not an allowed option", ErrInvalidInput, f.Key, s)
	case FieldTypeCheckbox:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: field %q must be a boolean", ErrInvalidInput, f.Key)
		}
	default:
		return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidInput, f.Key, f.Type)
	}
	return nil
}
