package core

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"
)

// DefaultSchema is the destination schema holding the migrated tables.
const DefaultSchema = "content"

// MaxBindParameters is the most bind parameters PostgreSQL accepts in one
// statement over the extended protocol.
const MaxBindParameters = 65535

// WriterOptions configures a Writer. Zero values select the defaults.
type WriterOptions struct {
	Schema    string // Destination schema (default: DefaultSchema)
	BatchSize int    // Maximum rows per INSERT statement (default: DefaultBatchSize), capped by MaxBindParameters
	Logger    *slog.Logger
	Metrics   Metrics
}

// Writer inserts record batches into one destination table.
//
// Each incoming batch is written in its own transaction with
// INSERT ... ON CONFLICT DO NOTHING, so re-running a migration over
// already-migrated rows inserts nothing and raises no error.
type Writer struct {
	db      DestinationDB
	def     TableDefinition
	table   string // qualified destination name
	batch   int    // rows per INSERT statement
	logger  *slog.Logger
	metrics Metrics

	inserted int64
}

// NewWriter creates a Writer for table.
// Fails with a ConfigurationError for a nil handle, an unknown table or a
// negative batch size.
func NewWriter(db DestinationDB, table string, opts WriterOptions) (*Writer, error) {
	if db == nil {
		return nil, &ConfigurationError{Field: "destination", Reason: "store handle is nil"}
	}
	if opts.BatchSize < 0 {
		return nil, &ConfigurationError{Field: "batch_size", Value: opts.BatchSize, Reason: "must be a positive integer"}
	}
	def, err := Lookup(table)
	if err != nil {
		return nil, err
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

	return &Writer{
		db:      db,
		def:     def,
		table:   qualifiedName(opts.Schema, def.Info.Key),
		batch:   min(opts.BatchSize, MaxBindParameters/len(def.Info.Columns)),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// StatementRows returns the most rows written by a single INSERT statement.
// Larger batches are split into several statements within one transaction.
func (w *Writer) StatementRows() int { return w.batch }

// Inserted returns the number of rows inserted so far. Rows skipped because
// their primary key already existed are not counted.
func (w *Writer) Inserted() int64 { return w.inserted }

// SaveAll consumes batches and writes each one.
//
// It returns the number of rows inserted by this call. An error from the
// sequence is returned unchanged; a failing batch is rolled back and
// returned as a TypeMismatchError or WriteError. Batches committed before
// the failure stay committed.
func (w *Writer) SaveAll(ctx context.Context, batches iter.Seq2[[]Record, error]) (int64, error) {
	var (
		total   int64
		batchNo int
		start   = time.Now()
	)

	for batch, err := range batches {
		if err != nil {
			return total, err
		}
		batchNo++

		n, err := w.SaveBatch(ctx, batchNo, batch)
		total += n
		if err != nil {
			return total, err
		}
	}

	w.logger.Info("table written",
		"table", w.def.Info.Key,
		"batches", batchNo,
		"inserted", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return total, nil
}

// SaveBatch writes one batch in a single transaction and returns the number
// of rows inserted. batchNo identifies the batch in errors and logs.
func (w *Writer) SaveBatch(ctx context.Context, batchNo int, batch []Record) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	// Reject heterogeneous batches before touching the database
	for i, rec := range batch {
		if rec == nil || rec.Table() != w.def.Info.Key {
			got := "<nil>"
			if rec != nil {
				got = rec.Table()
			}
			err := &TypeMismatchError{Table: w.def.Info.Key, Batch: batchNo, Index: i, Got: got}
			w.logger.Error("batch rejected", "table", w.def.Info.Key, "batch", batchNo, "error", err)
			return 0, err
		}
	}

	start := time.Now()
	fail := func(stage string, err error) (int64, error) {
		w.logger.Error("batch write failed",
			"table", w.def.Info.Key,
			"batch", batchNo,
			"rows", len(batch),
			"stage", stage,
			"error", err,
		)
		return 0, &WriteError{Table: w.def.Info.Key, Batch: batchNo, Rows: len(batch), Err: fmt.Errorf("%s: %w", stage, err)}
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fail("begin transaction", err)
	}
	// No-op once committed
	defer tx.Rollback(ctx)

	var inserted int64
	for lo := 0; lo < len(batch); lo += w.batch {
		hi := min(lo+w.batch, len(batch))
		query, args := w.insertStatement(batch[lo:hi])

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fail("insert", err)
		}
		inserted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}

	w.inserted += inserted
	elapsed := time.Since(start)
	w.metrics.BatchWritten(w.def.Info.Key, len(batch), inserted, elapsed)
	w.logger.Info("batch written",
		"table", w.def.Info.Key,
		"batch", batchNo,
		"rows", len(batch),
		"inserted", inserted,
		"skipped", int64(len(batch))-inserted,
		"duration_ms", elapsed.Milliseconds(),
	)
	return inserted, nil
}

// insertStatement builds one multi-row insert for records, skipping rows
// whose primary key already exists.
func (w *Writer) insertStatement(records []Record) (string, []any) {
	columns := w.def.Info.Columns
	args := make([]any, 0, len(records)*len(columns))
	for _, rec := range records {
		args = append(args, rec.Values()...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO NOTHING",
		w.table,
		columnList(columns),
		valuesList(len(records), len(columns)),
		quoteIdentifier(w.def.Info.PrimaryKey),
	)
	return query, args
}
