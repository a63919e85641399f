package core

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
)

// DefaultBatchSize is the number of rows per batch when none is configured.
const DefaultBatchSize = 100

// Extractor streams one source table in fixed-size batches.
type Extractor struct {
	db     SourceDB
	def    TableDefinition
	batch  int
	query  string
	logger *slog.Logger
}

// NewExtractor creates an Extractor for table.
// Fails with a ConfigurationError for a nil handle, an unknown table or a
// batch size below one.
func NewExtractor(db SourceDB, table string, batchSize int, logger *slog.Logger) (*Extractor, error) {
	if db == nil {
		return nil, &ConfigurationError{Field: "source", Reason: "store handle is nil"}
	}
	if batchSize <= 0 {
		return nil, &ConfigurationError{Field: "batch_size", Value: batchSize, Reason: "must be a positive integer"}
	}
	def, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Columns are listed explicitly so positional mapping follows the
	// registry order, not the physical order of the source table.
	query := fmt.Sprintf("SELECT %s FROM %s", columnList(def.Info.Columns), quoteIdentifier(def.Info.Key))

	return &Extractor{
		db:     db,
		def:    def,
		batch:  batchSize,
		query:  query,
		logger: logger,
	}, nil
}

// Table returns the key of the table being extracted.
func (e *Extractor) Table() string { return e.def.Info.Key }

// BatchSize returns the maximum number of rows per batch.
func (e *Extractor) BatchSize() int { return e.batch }

// Extract returns the raw row batches of the table in source order.
//
// Each batch holds between 1 and BatchSize rows; the sequence ends when the
// source is exhausted. The initial query failing yields a QueryError, a
// failure on a later fetch yields a FetchError; either ends the sequence.
// The cursor is closed on every exit path.
func (e *Extractor) Extract(ctx context.Context) iter.Seq2[[][]any, error] {
	return func(yield func([][]any, error) bool) {
		rows, err := e.db.QueryContext(ctx, e.query)
		if err != nil {
			qerr := &QueryError{Table: e.Table(), Query: e.query, Err: err}
			e.logger.Error("source query failed", "table", e.Table(), "error", err)
			yield(nil, qerr)
			return
		}
		defer rows.Close()

		width := len(e.def.Info.Columns)
		for n := 1; ; n++ {
			batch, err := fetchMany(rows, width, e.batch)
			if err != nil {
				ferr := &FetchError{Table: e.Table(), Batch: n, Err: err}
				e.logger.Error("source fetch failed", "table", e.Table(), "batch", n, "error", err)
				yield(nil, ferr)
				return
			}
			if len(batch) == 0 {
				e.logger.Debug("source exhausted", "table", e.Table(), "batches", n-1)
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// Load returns the record batches of the table.
//
// Every row of a batch is constructed before the batch is yielded, so a row
// that fails validation ends the sequence with a MappingError and no part of
// its batch reaches the consumer.
func (e *Extractor) Load(ctx context.Context) iter.Seq2[[]Record, error] {
	return func(yield func([]Record, error) bool) {
		batchNo, offset := 0, 0
		for rows, err := range e.Extract(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			batchNo++

			records := make([]Record, 0, len(rows))
			for i, row := range rows {
				rec, err := e.def.Construct(row)
				if err != nil {
					merr := &MappingError{Table: e.Table(), Batch: batchNo, Row: offset + i + 1, Err: err}
					e.logger.Error("row mapping failed",
						"table", e.Table(),
						"batch", batchNo,
						"row", merr.Row,
						"error", err,
					)
					yield(nil, merr)
					return
				}
				records = append(records, rec)
			}
			offset += len(rows)

			if !yield(records, nil) {
				return
			}
		}
	}
}

// fetchMany reads up to n rows of width columns from rows.
// An empty result with a nil error means the cursor is exhausted.
func fetchMany(rows *sql.Rows, width, n int) ([][]any, error) {
	batch := make([][]any, 0, n)
	for len(batch) < n && rows.Next() {
		values := make([]any, width)
		dest := make([]any, width)
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		batch = append(batch, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batch, nil
}
