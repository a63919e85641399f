package core

// convert.go provides the value coercions applied to every field.
//
// The two stores hand back different Go representations for the same column:
//   - SQLite (modernc) returns TEXT as string or []byte, REAL as float64,
//     INTEGER as int64 and may return DATE/TIMESTAMP columns as time.Time
//   - pgx returns uuid as [16]byte, date and timestamptz as time.Time
//   - decomposed records carry pgtype values
//
// Each To* function accepts all of them and returns one canonical type, so
// records built from either store compare equal. Timestamps are normalised
// to UTC. A nil input yields an invalid (NULL) pgtype value; whether NULL is
// acceptable is decided by the caller from the FieldSpec.

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// TimestampLayout is the text format of created_at/updated_at in the
// source store: "2021-06-16 20:14:09.221838+00". The offset must be +00;
// the fraction may be omitted.
const TimestampLayout = "2006-01-02 15:04:05.999999-07"

// DateLayout is the text format of creation_date in the source store.
const DateLayout = "2006-01-02"

// ToUUID converts v to a uuid.UUID.
// Fails if v is nil, empty or not a syntactically valid UUID.
func ToUUID(field string, v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case nil:
		return uuid.Nil, ValidationError{Field: field, Message: "id cannot be null or empty"}
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case pgtype.UUID:
		if !x.Valid {
			return uuid.Nil, ValidationError{Field: field, Message: "id cannot be null or empty"}
		}
		return uuid.UUID(x.Bytes), nil
	case []byte:
		return parseUUID(field, string(x))
	case string:
		return parseUUID(field, x)
	default:
		return uuid.Nil, ValidationError{Field: field, Value: fmt.Sprintf("%T", v), Message: "unsupported uuid value"}
	}
}

func parseUUID(field, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, ValidationError{Field: field, Message: "id cannot be null or empty"}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ValidationError{Field: field, Value: strconv.Quote(s), Message: "invalid uuid format"}
	}
	return id, nil
}

// PgUUID converts a uuid.UUID to a valid pgtype.UUID.
func PgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// ToText converts v to pgtype.Text.
// Unlike user-entered data, an empty string is kept as a valid empty value;
// only nil becomes NULL.
func ToText(field string, v any) (pgtype.Text, error) {
	switch x := v.(type) {
	case nil:
		return pgtype.Text{}, nil
	case string:
		return pgtype.Text{String: x, Valid: true}, nil
	case []byte:
		return pgtype.Text{String: string(x), Valid: true}, nil
	case pgtype.Text:
		return x, nil
	default:
		return pgtype.Text{}, ValidationError{Field: field, Value: fmt.Sprintf("%T", v), Message: "expected text"}
	}
}

// ToTimestamp converts v to pgtype.Timestamptz in UTC.
// Text is parsed with TimestampLayout; time values pass through.
func ToTimestamp(field string, v any) (pgtype.Timestamptz, error) {
	switch x := v.(type) {
	case nil:
		return pgtype.Timestamptz{}, nil
	case time.Time:
		return pgtype.Timestamptz{Time: x.UTC(), Valid: true}, nil
	case pgtype.Timestamptz:
		if x.Valid {
			x.Time = x.Time.UTC()
		}
		return x, nil
	case pgtype.Timestamp:
		return pgtype.Timestamptz{Time: x.Time.UTC(), Valid: x.Valid}, nil
	case []byte:
		return parseTimestamp(field, string(x))
	case string:
		return parseTimestamp(field, x)
	default:
		return pgtype.Timestamptz{}, ValidationError{Field: field, Value: fmt.Sprintf("%T", v), Message: "unsupported timestamp value"}
	}
}

func parseTimestamp(field, s string) (pgtype.Timestamptz, error) {
	t, err := time.Parse(TimestampLayout, strings.TrimSpace(s))
	if err != nil {
		return pgtype.Timestamptz{}, ValidationError{
			Field:   field,
			Value:   strconv.Quote(s),
			Message: "invalid timestamp format (use YYYY-MM-DD HH:MM:SS.ffffff+00)",
		}
	}
	if _, offset := t.Zone(); offset != 0 {
		return pgtype.Timestamptz{}, ValidationError{
			Field:   field,
			Value:   strconv.Quote(s),
			Message: "timestamp offset must be +00",
		}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}, nil
}

// ToDate converts v to pgtype.Date at UTC midnight.
// Accepts YYYY-MM-DD text, TimestampLayout text and time values.
func ToDate(field string, v any) (pgtype.Date, error) {
	switch x := v.(type) {
	case nil:
		return pgtype.Date{}, nil
	case time.Time:
		return pgtype.Date{Time: midnight(x), Valid: true}, nil
	case pgtype.Date:
		if x.Valid {
			x.Time = midnight(x.Time)
		}
		return x, nil
	case []byte:
		return parseDate(field, string(x))
	case string:
		return parseDate(field, x)
	default:
		return pgtype.Date{}, ValidationError{Field: field, Value: fmt.Sprintf("%T", v), Message: "unsupported date value"}
	}
}

func parseDate(field, s string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, TimestampLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: midnight(t), Valid: true}, nil
		}
	}
	return pgtype.Date{}, ValidationError{Field: field, Value: strconv.Quote(s), Message: "invalid date format (use YYYY-MM-DD)"}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ToFloat converts v to pgtype.Float8.
// Integers, numeric text and native floats are all accepted.
func ToFloat(field string, v any) (pgtype.Float8, error) {
	switch x := v.(type) {
	case nil:
		return pgtype.Float8{}, nil
	case float64:
		return pgtype.Float8{Float64: x, Valid: true}, nil
	case float32:
		return pgtype.Float8{Float64: float64(x), Valid: true}, nil
	case int:
		return pgtype.Float8{Float64: float64(x), Valid: true}, nil
	case int32:
		return pgtype.Float8{Float64: float64(x), Valid: true}, nil
	case int64:
		return pgtype.Float8{Float64: float64(x), Valid: true}, nil
	case pgtype.Float8:
		return x, nil
	case pgtype.Numeric:
		if !x.Valid {
			return pgtype.Float8{}, nil
		}
		return x.Float64Value()
	case []byte:
		return parseFloat(field, string(x))
	case string:
		return parseFloat(field, x)
	default:
		return pgtype.Float8{}, ValidationError{Field: field, Value: fmt.Sprintf("%T", v), Message: "non-numeric value"}
	}
}

func parseFloat(field, s string) (pgtype.Float8, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return pgtype.Float8{}, ValidationError{Field: field, Value: strconv.Quote(s), Message: "non-numeric value"}
	}
	return pgtype.Float8{Float64: f, Valid: true}, nil
}

// SameTimestamp reports whether a and b are both NULL or the same instant.
func SameTimestamp(a, b pgtype.Timestamptz) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || (a.Time.Equal(b.Time) && a.InfinityModifier == b.InfinityModifier)
}

// SameDate reports whether a and b are both NULL or the same calendar day.
func SameDate(a, b pgtype.Date) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || (a.Time.Equal(b.Time) && a.InfinityModifier == b.InfinityModifier)
}
