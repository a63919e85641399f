package core

// errors.go defines the error taxonomy of the migration.
//
// Construction-time problems are ConfigurationErrors. Per-field problems are
// ValidationErrors, which the Extractor wraps in a MappingError naming the
// table and row. Source failures are QueryError (initial query) or FetchError
// (subsequent batch). Destination failures are TypeMismatchError (rejected
// before any write) or WriteError (transaction rolled back). Audit failures
// are VerificationErrors.

import (
	"fmt"
)

// ConfigurationError reports an invalid table name, batch size or store
// handle. It is raised at construction time and never retried.
type ConfigurationError struct {
	Field  string // Offending setting: "table", "batch_size", "source"
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration: %s %v: %s", e.Field, e.Value, e.Reason)
}

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Column name
	Value   string // The invalid value, formatted
	Message string // Human-readable reason
}

func (e ValidationError) Error() string {
	msg := e.Message
	if e.Value != "" {
		msg = fmt.Sprintf("%s (got %s)", e.Message, e.Value)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, msg)
	}
	return msg
}

// MappingError reports a source row that could not be turned into a record.
// Row is the 1-based position of the row in the table scan.
type MappingError struct {
	Table string
	Batch int
	Row   int
	Err   error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map %s row %d (batch %d): %v", e.Table, e.Row, e.Batch, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// QueryError reports a failure issuing the initial source query.
type QueryError struct {
	Table string
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Table, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// FetchError reports a failure while pulling a batch from an open cursor.
type FetchError struct {
	Table string
	Batch int
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s batch %d: %v", e.Table, e.Batch, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TypeMismatchError reports a batch element that is not a record of the
// writer's table. Got is the element's table key, or "<nil>".
type TypeMismatchError struct {
	Table string
	Batch int
	Index int
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("write %s batch %d: element %d is a %s record", e.Table, e.Batch, e.Index, e.Got)
}

// WriteError reports a destination failure. The batch's transaction was
// rolled back; earlier batches stay committed.
type WriteError struct {
	Table string
	Batch int
	Rows  int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s batch %d (%d rows): %v", e.Table, e.Batch, e.Rows, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// VerificationError reports a difference between source and destination.
//
// Exactly one of three shapes is populated: a field mismatch (Source and
// Destination set), a count mismatch (SourceCount != DestinationCount), or
// an underlying failure (Err set).
type VerificationError struct {
	Table            string
	Batch            int
	Source           Record
	Destination      Record
	SourceCount      int
	DestinationCount int
	Err              error
}

func (e *VerificationError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("verify %s batch %d: %v", e.Table, e.Batch, e.Err)
	case e.Source != nil:
		return fmt.Sprintf("verify %s batch %d: record %s differs: source=%+v destination=%+v",
			e.Table, e.Batch, e.Source.Key(), e.Source, e.Destination)
	default:
		return fmt.Sprintf("verify %s batch %d: source has %d rows, destination has %d",
			e.Table, e.Batch, e.SourceCount, e.DestinationCount)
	}
}

func (e *VerificationError) Unwrap() error { return e.Err }
