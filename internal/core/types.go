package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SourceDB is the interface for reading the legacy store.
// Satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type SourceDB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DestinationDB is the interface for the PostgreSQL side.
// Satisfied by *pgxpool.Pool and *pgx.Conn.
type DestinationDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// FieldType represents the semantic type of a record field.
type FieldType int

const (
	FieldUUID FieldType = iota
	FieldText
	FieldDate
	FieldTimestamp
	FieldFloat
)

// FieldSpec declares the coercion rule for a single column.
type FieldSpec struct {
	Name     string    // Column name, identical in source and destination
	Type     FieldType // Semantic type; selects the coercion applied
	Nullable bool      // NULL is accepted and kept as an invalid pgtype value
}

// TableInfo contains identifying information about a logical table.
type TableInfo struct {
	Key        string   // Table name: "film_work"
	Label      string   // Display name: "Film works"
	Columns    []string // Ordered column names, derived from FieldSpecs
	PrimaryKey string   // Primary key column (default: "id")
}

// Record is an immutable, validated representation of one row.
type Record interface {
	// Table returns the key of the table the record belongs to.
	Table() string
	// Key returns the primary key.
	Key() uuid.UUID
	// Values returns the field values in registry column order, encoded
	// for the destination.
	Values() []any
	// Equal reports whether other is a record of the same table whose
	// fields are all equal.
	Equal(other Record) bool
}

// ConstructFunc assembles a record from values already coerced by the
// table's FieldSpecs. Element i holds the typed value for FieldSpecs[i].
type ConstructFunc func(coerced []any) Record

// TableDefinition contains everything needed to migrate a table.
type TableDefinition struct {
	Info       TableInfo
	FieldSpecs []FieldSpec
	New        ConstructFunc
}

// TableState is the migration state of a table.
type TableState string

const (
	StatePending    TableState = "pending"
	StateExtracting TableState = "extracting"
	StateWriting    TableState = "writing"
	StateVerifying  TableState = "verifying"
	StateVerified   TableState = "verified"
	StateMigrated   TableState = "migrated" // written, verification skipped
	StateFailed     TableState = "failed"
)

// Terminal reports whether no further transition follows s.
func (s TableState) Terminal() bool {
	return s == StateVerified || s == StateMigrated || s == StateFailed
}

// Metrics receives migration measurements. Implementations must be safe
// for use by a single goroutine; the pipeline never calls them concurrently.
type Metrics interface {
	BatchWritten(table string, rows int, inserted int64, d time.Duration)
	BatchVerified(table string, rows int, d time.Duration)
	TableFinished(table string, state TableState, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) BatchWritten(string, int, int64, time.Duration) {}
func (nopMetrics) BatchVerified(string, int, time.Duration)       {}
func (nopMetrics) TableFinished(string, TableState, time.Duration) {}
