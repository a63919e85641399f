package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// VerifierOptions configures a Verifier. Zero values select the defaults.
type VerifierOptions struct {
	Schema    string // Destination schema (default: DefaultSchema)
	BatchSize int    // Source batch size (default: DefaultBatchSize)
	Logger    *slog.Logger
	Metrics   Metrics
}

// VerifyResult summarises a successful verification.
type VerifyResult struct {
	Table   string
	Batches int
	Rows    int
}

// Verifier audits a migrated table against its source.
//
// It is a pass/fail check: the first difference is returned as a
// VerificationError and nothing is reconciled.
type Verifier struct {
	source  SourceDB
	dest    DestinationDB
	schema  string
	batch   int
	logger  *slog.Logger
	metrics Metrics
}

// NewVerifier creates a Verifier over the two stores.
func NewVerifier(source SourceDB, dest DestinationDB, opts VerifierOptions) (*Verifier, error) {
	if source == nil {
		return nil, &ConfigurationError{Field: "source", Reason: "store handle is nil"}
	}
	if dest == nil {
		return nil, &ConfigurationError{Field: "destination", Reason: "store handle is nil"}
	}
	if opts.BatchSize < 0 {
		return nil, &ConfigurationError{Field: "batch_size", Value: opts.BatchSize, Reason: "must be a positive integer"}
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Schema == "" {
		opts.Schema = DefaultSchema
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}

	return &Verifier{
		source:  source,
		dest:    dest,
		schema:  opts.Schema,
		batch:   opts.BatchSize,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Verify compares table batch by batch.
//
// For every source batch the destination rows with the same ids are
// fetched. Each source record whose id is present in the destination must be
// equal to it, and the number of destination rows must equal the size of
// the source batch. Store failures on either side are returned wrapped in a
// VerificationError; an unknown table is a ConfigurationError.
func (v *Verifier) Verify(ctx context.Context, table string) (VerifyResult, error) {
	result := VerifyResult{Table: table}

	ext, err := NewExtractor(v.source, table, v.batch, v.logger)
	if err != nil {
		return result, err
	}
	def := ext.def

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ANY($1)",
		columnList(def.Info.Columns),
		qualifiedName(v.schema, def.Info.Key),
		quoteIdentifier(def.Info.PrimaryKey),
	)

	for batch, err := range ext.Load(ctx) {
		batchNo := result.Batches + 1
		if err != nil {
			return result, v.fail(&VerificationError{Table: table, Batch: batchNo, Err: err})
		}
		start := time.Now()

		ids := make([]pgtype.UUID, len(batch))
		for i, rec := range batch {
			ids[i] = PgUUID(rec.Key())
		}

		migrated, err := v.fetchDestination(ctx, def, query, ids)
		if err != nil {
			return result, v.fail(&VerificationError{Table: table, Batch: batchNo, Err: err})
		}

		byID := make(map[uuid.UUID]Record, len(migrated))
		for _, rec := range migrated {
			byID[rec.Key()] = rec
		}
		for _, src := range batch {
			if dst, ok := byID[src.Key()]; ok && !src.Equal(dst) {
				return result, v.fail(&VerificationError{Table: table, Batch: batchNo, Source: src, Destination: dst})
			}
		}
		if len(migrated) != len(batch) {
			return result, v.fail(&VerificationError{
				Table:            table,
				Batch:            batchNo,
				SourceCount:      len(batch),
				DestinationCount: len(migrated),
			})
		}

		result.Batches++
		result.Rows += len(batch)
		v.metrics.BatchVerified(table, len(batch), time.Since(start))
	}

	v.logger.Info("table verified", "table", table, "batches", result.Batches, "rows", result.Rows)
	return result, nil
}

// fetchDestination loads the destination rows whose primary key is in ids
// and maps them by column name. The result set is closed before returning.
func (v *Verifier) fetchDestination(ctx context.Context, def TableDefinition, query string, ids []pgtype.UUID) ([]Record, error) {
	rows, err := v.dest.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query destination: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	records := make([]Record, 0, len(ids))
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read destination row: %w", err)
		}

		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			if i < len(values) {
				row[fd.Name] = values[i]
			}
		}

		rec, err := def.ConstructMap(row)
		if err != nil {
			return nil, &MappingError{Table: def.Info.Key, Row: len(records) + 1, Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read destination rows: %w", err)
	}
	return records, nil
}

func (v *Verifier) fail(err *VerificationError) error {
	v.logger.Error("verification failed",
		"table", err.Table,
		"batch", err.Batch,
		"error", err,
	)
	return err
}
