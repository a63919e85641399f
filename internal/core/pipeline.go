package core

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"
)

// PipelineOptions configures a Pipeline. Zero values select the defaults.
type PipelineOptions struct {
	BatchSize  int      // Rows per batch for every stage (default: DefaultBatchSize)
	Schema     string   // Destination schema (default: DefaultSchema)
	Tables     []string // Subset to migrate; empty selects every table
	SkipVerify bool     // Stop after writing; tables end in StateMigrated
	Logger     *slog.Logger
	Metrics    Metrics
	Tracker    *Tracker
}

// TableResult is the outcome of one table.
type TableResult struct {
	Table        string        `json:"table"`
	State        TableState    `json:"state"`
	Inserted     int64         `json:"inserted"`
	VerifiedRows int           `json:"verified_rows"`
	Err          error         `json:"-"`
	Code         string        `json:"code,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Report is the outcome of a run, one TableResult per table in run order.
type Report struct {
	Tables   []TableResult
	Duration time.Duration
}

// Failed reports whether any table failed.
func (r Report) Failed() bool {
	for _, t := range r.Tables {
		if t.State == StateFailed {
			return true
		}
	}
	return false
}

// Err joins the errors of the failed tables, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, t := range r.Tables {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	return errors.Join(errs...)
}

// Inserted returns the number of rows inserted across all tables.
func (r Report) Inserted() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Inserted
	}
	return n
}

// Pipeline migrates tables one at a time in TableOrder.
//
// Each table is extracted, written and verified before the next one starts.
// A failing table is marked failed and the run moves on to the next table.
type Pipeline struct {
	source     SourceDB
	dest       DestinationDB
	defs       []TableDefinition
	batch      int
	schema     string
	skipVerify bool
	verifier   *Verifier
	logger     *slog.Logger
	metrics    Metrics
	tracker    *Tracker
}

// NewPipeline validates opts and creates a Pipeline.
// Every problem found here is a ConfigurationError and nothing is touched.
func NewPipeline(source SourceDB, dest DestinationDB, opts PipelineOptions) (*Pipeline, error) {
	if source == nil {
		return nil, &ConfigurationError{Field: "source", Reason: "store handle is nil"}
	}
	if dest == nil {
		return nil, &ConfigurationError{Field: "destination", Reason: "store handle is nil"}
	}
	if opts.BatchSize < 0 {
		return nil, &ConfigurationError{Field: "batch_size", Value: opts.BatchSize, Reason: "must be a positive integer"}
	}
	defs, err := Resolve(opts.Tables)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, &ConfigurationError{Field: "tables", Reason: "no tables registered"}
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
	if opts.Tracker == nil {
		opts.Tracker = NewTracker()
	}
	for _, def := range defs {
		opts.Tracker.SetState(def.Info.Key, StatePending)
	}

	verifier, err := NewVerifier(source, dest, VerifierOptions{
		Schema:    opts.Schema,
		BatchSize: opts.BatchSize,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		source:     source,
		dest:       dest,
		defs:       defs,
		batch:      opts.BatchSize,
		schema:     opts.Schema,
		skipVerify: opts.SkipVerify,
		verifier:   verifier,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		tracker:    opts.Tracker,
	}, nil
}

// Tables returns the keys of the tables the pipeline migrates, in run order.
func (p *Pipeline) Tables() []string {
	keys := make([]string, len(p.defs))
	for i, def := range p.defs {
		keys[i] = def.Info.Key
	}
	return keys
}

// Tracker returns the progress tracker the pipeline publishes to.
func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// Run migrates every table and returns the report. It never stops early on
// a table failure; once ctx is done the remaining tables fail with the
// context's error. Subscriptions on the tracker are closed when Run returns.
func (p *Pipeline) Run(ctx context.Context) Report {
	defer p.tracker.Close()

	start := time.Now()
	report := Report{Tables: make([]TableResult, 0, len(p.defs))}

	p.logger.Info("migration started",
		"tables", len(p.defs),
		"batch_size", p.batch,
		"schema", p.schema,
		"verify", !p.skipVerify,
	)

	for _, def := range p.defs {
		report.Tables = append(report.Tables, p.runTable(ctx, def))
	}
	report.Duration = time.Since(start)

	level := slog.LevelInfo
	if report.Failed() {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "migration finished",
		"tables", len(report.Tables),
		"inserted", report.Inserted(),
		"failed", report.Failed(),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

// runTable drives one table through its states.
func (p *Pipeline) runTable(ctx context.Context, def TableDefinition) TableResult {
	key := def.Info.Key
	start := time.Now()
	result := TableResult{Table: key}

	finish := func(state TableState, err error) TableResult {
		result.State = state
		result.Duration = time.Since(start)
		if err != nil {
			result.Err = err
			result.Code = MapError(err).Code
			p.logger.Error("table failed",
				"table", key,
				"code", result.Code,
				"inserted", result.Inserted,
				"error", err,
			)
		}
		p.tracker.Update(key, func(tp *TableProgress) {
			tp.Inserted = result.Inserted
			tp.VerifiedRows = result.VerifiedRows
			if err != nil {
				tp.Error = err.Error()
				tp.Code = result.Code
			}
		})
		p.tracker.SetState(key, state)
		p.metrics.TableFinished(key, state, result.Duration)
		return result
	}

	if err := ctx.Err(); err != nil {
		return finish(StateFailed, err)
	}

	p.tracker.SetState(key, StateExtracting)
	ext, err := NewExtractor(p.source, key, p.batch, p.logger)
	if err != nil {
		return finish(StateFailed, err)
	}
	w, err := NewWriter(p.dest, key, WriterOptions{
		Schema:    p.schema,
		BatchSize: p.batch,
		Logger:    p.logger,
		Metrics:   p.metrics,
	})
	if err != nil {
		return finish(StateFailed, err)
	}
	p.logger.Info("table started",
		"table", key,
		"batch_size", ext.BatchSize(),
		"statement_rows", w.StatementRows(),
	)

	inserted, err := w.SaveAll(ctx, p.observe(key, w, ext.Load(ctx)))
	result.Inserted = inserted
	if err != nil {
		return finish(StateFailed, err)
	}

	if p.skipVerify {
		p.logger.Info("table migrated", "table", key, "inserted", inserted)
		return finish(StateMigrated, nil)
	}

	p.tracker.SetState(key, StateVerifying)
	vr, err := p.verifier.Verify(ctx, key)
	result.VerifiedRows = vr.Rows
	if err != nil {
		return finish(StateFailed, err)
	}

	p.logger.Info("table migrated",
		"table", key,
		"inserted", inserted,
		"verified_rows", vr.Rows,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return finish(StateVerified, nil)
}

// observe publishes batch progress for table as batches pass from the
// extractor to the writer. The state becomes writing when the first batch
// is handed over.
func (p *Pipeline) observe(table string, w *Writer, batches iter.Seq2[[]Record, error]) iter.Seq2[[]Record, error] {
	return func(yield func([]Record, error) bool) {
		first := true
		for batch, err := range batches {
			if err == nil {
				if first {
					p.tracker.SetState(table, StateWriting)
					first = false
				}
				p.tracker.Update(table, func(tp *TableProgress) {
					tp.Batches++
					tp.RowsRead += len(batch)
				})
			}
			if !yield(batch, err) {
				return
			}
			p.tracker.Update(table, func(tp *TableProgress) {
				tp.Inserted = w.Inserted()
			})
		}
	}
}
