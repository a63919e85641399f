package core

// validation.go applies a table's FieldSpecs to a raw row.
//
// Construction happens in two steps:
//  1. Coerce: every value is converted by the rule of its FieldSpec and
//     checked for NULL. The first failing field is reported.
//  2. New: the table's constructor assembles the record from the typed values.
//
// Keyed rows (destination side) are first put into column order by
// ConstructMap, so both stores go through the same rules.

import (
	"fmt"
)

// Construct validates a positional row and returns the record.
func (t TableDefinition) Construct(values []any) (Record, error) {
	coerced, err := Coerce(t.FieldSpecs, values)
	if err != nil {
		return nil, err
	}
	return t.New(coerced), nil
}

// ConstructMap validates a row keyed by column name and returns the record.
// Keys that are not columns of the table are ignored.
func (t TableDefinition) ConstructMap(row map[string]any) (Record, error) {
	values := make([]any, len(t.FieldSpecs))
	for i, spec := range t.FieldSpecs {
		v, ok := row[spec.Name]
		if !ok {
			return nil, ValidationError{Field: spec.Name, Message: "missing required column"}
		}
		values[i] = v
	}
	return t.Construct(values)
}

// Coerce applies specs to values, returning the typed value for each field.
func Coerce(specs []FieldSpec, values []any) ([]any, error) {
	if len(values) != len(specs) {
		return nil, ValidationError{Message: fmt.Sprintf("expected %d columns, got %d", len(specs), len(values))}
	}

	out := make([]any, len(specs))
	for i, spec := range specs {
		v, err := CoerceValue(spec, values[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// CoerceValue converts a single value according to spec.
//
// Result types by FieldType:
//
//	FieldUUID       uuid.UUID
//	FieldText       string, or pgtype.Text when Nullable
//	FieldDate       pgtype.Date
//	FieldTimestamp  pgtype.Timestamptz
//	FieldFloat      pgtype.Float8
func CoerceValue(spec FieldSpec, v any) (any, error) {
	switch spec.Type {
	case FieldUUID:
		return ToUUID(spec.Name, v)

	case FieldText:
		t, err := ToText(spec.Name, v)
		if err != nil {
			return nil, err
		}
		if spec.Nullable {
			return t, nil
		}
		if err := requireValue(spec, t.Valid); err != nil {
			return nil, err
		}
		return t.String, nil

	case FieldDate:
		d, err := ToDate(spec.Name, v)
		if err != nil {
			return nil, err
		}
		return d, requireValue(spec, d.Valid)

	case FieldTimestamp:
		ts, err := ToTimestamp(spec.Name, v)
		if err != nil {
			return nil, err
		}
		return ts, requireValue(spec, ts.Valid)

	case FieldFloat:
		f, err := ToFloat(spec.Name, v)
		if err != nil {
			return nil, err
		}
		return f, requireValue(spec, f.Valid)
	}

	return nil, ValidationError{Field: spec.Name, Message: fmt.Sprintf("unsupported field type %s", fieldTypeName(spec.Type))}
}

func requireValue(spec FieldSpec, valid bool) error {
	if valid || spec.Nullable {
		return nil
	}
	return ValidationError{Field: spec.Name, Message: "required field is null"}
}

// fieldTypeName returns a human-readable name for a field type.
func fieldTypeName(ft FieldType) string {
	switch ft {
	case FieldUUID:
		return "uuid"
	case FieldText:
		return "text"
	case FieldDate:
		return "date"
	case FieldTimestamp:
		return "timestamp"
	case FieldFloat:
		return "float"
	default:
		return "value"
	}
}
