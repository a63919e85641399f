package core_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/moviesmigrate/internal/core"
	_ "github.com/JonMunkholm/moviesmigrate/internal/core/tables"
)

var (
	insertRe = regexp.MustCompile(`^INSERT INTO "([^"]+)"\."([^"]+)" \(([^)]*)\) VALUES`)
	selectRe = regexp.MustCompile(`^SELECT (.+) FROM "([^"]+)"\."([^"]+)" WHERE "id" = ANY\(\$1\)$`)
)

// fakeDest is an in-memory PostgreSQL stand-in. Rows are stored per
// schema-qualified table and keyed by id; inserts skip existing ids.
type fakeDest struct {
	mu     sync.Mutex
	tables map[string]map[[16]byte]map[string]any

	begins   int
	execs    int
	commits  int
	openRows int
	maxArgs  int // most args seen by a single Exec

	failExecAt int // 1-based Exec call that fails; 0 disables
	beginErr   error
	queryErr   error
}

func newFakeDest() *fakeDest {
	return &fakeDest{tables: make(map[string]map[[16]byte]map[string]any)}
}

var errExecFailed = errors.New("fake: exec failed")

func (d *fakeDest) Begin(ctx context.Context) (pgx.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.begins++
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return &fakeTx{d: d}, nil
}

func (d *fakeDest) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queryErr != nil {
		return nil, d.queryErr
	}
	m := selectRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("fake: unsupported query %q", query)
	}
	columns := splitColumns(m[1])
	ids, ok := args[0].([]pgtype.UUID)
	if !ok {
		return nil, fmt.Errorf("fake: ANY argument is %T", args[0])
	}

	rows := &fakeRows{d: d}
	for _, c := range columns {
		rows.fields = append(rows.fields, pgconn.FieldDescription{Name: c})
	}
	table := d.tables[m[2]+"."+m[3]]
	for _, id := range ids {
		row, ok := table[id.Bytes]
		if !ok {
			continue
		}
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = row[c]
		}
		rows.rows = append(rows.rows, values)
	}
	d.openRows++
	return rows, nil
}

// count returns the number of rows in content.table.
func (d *fakeDest) count(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[core.DefaultSchema+"."+table])
}

// set overwrites one column of a stored row.
func (d *fakeDest) set(table string, id uuid.UUID, column string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[core.DefaultSchema+"."+table][[16]byte(id)][column] = value
}

// remove deletes a stored row.
func (d *fakeDest) remove(table string, id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tables[core.DefaultSchema+"."+table], [16]byte(id))
}

type stagedRow struct {
	table string
	id    [16]byte
	row   map[string]any
}

// fakeTx stages inserts until Commit. Methods not overridden panic via the
// nil embedded interface.
type fakeTx struct {
	pgx.Tx
	d      *fakeDest
	staged []stagedRow
	closed bool
}

func (tx *fakeTx) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	d := tx.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if tx.closed {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	d.execs++
	d.maxArgs = max(d.maxArgs, len(args))
	if d.failExecAt > 0 && d.execs == d.failExecAt {
		return pgconn.CommandTag{}, errExecFailed
	}

	m := insertRe.FindStringSubmatch(query)
	if m == nil {
		return pgconn.CommandTag{}, fmt.Errorf("fake: unsupported statement %q", query)
	}
	if !strings.HasSuffix(query, `ON CONFLICT ("id") DO NOTHING`) {
		return pgconn.CommandTag{}, fmt.Errorf("fake: insert without conflict clause")
	}
	table := m[1] + "." + m[2]
	columns := splitColumns(m[3])
	if len(args)%len(columns) != 0 {
		return pgconn.CommandTag{}, fmt.Errorf("fake: %d args for %d columns", len(args), len(columns))
	}

	var inserted int
	for lo := 0; lo < len(args); lo += len(columns) {
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c] = wireValue(args[lo+i])
		}
		id := args[lo].(pgtype.UUID).Bytes
		if tx.exists(table, id) {
			continue
		}
		tx.staged = append(tx.staged, stagedRow{table: table, id: id, row: row})
		inserted++
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", inserted)), nil
}

func (tx *fakeTx) exists(table string, id [16]byte) bool {
	if _, ok := tx.d.tables[table][id]; ok {
		return true
	}
	for _, s := range tx.staged {
		if s.table == table && s.id == id {
			return true
		}
	}
	return false
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	d := tx.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	for _, s := range tx.staged {
		if d.tables[s.table] == nil {
			d.tables[s.table] = make(map[[16]byte]map[string]any)
		}
		d.tables[s.table][s.id] = s.row
	}
	d.commits++
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.staged = nil
	return nil
}

// fakeRows serves a precomputed result set the way pgx does: uuids as
// [16]byte, NULLs as nil and timestamps in local time.
type fakeRows struct {
	pgx.Rows
	d      *fakeDest
	fields []pgconn.FieldDescription
	rows   [][]any
	i      int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.closed || r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.i-1], nil }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Err() error                                   { return nil }

func (r *fakeRows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.d.mu.Lock()
	r.d.openRows--
	r.d.mu.Unlock()
}

// wireValue converts an insert argument to what pgx would return on read.
func wireValue(v any) any {
	switch x := v.(type) {
	case pgtype.UUID:
		if !x.Valid {
			return nil
		}
		return x.Bytes
	case pgtype.Text:
		if !x.Valid {
			return nil
		}
		return x.String
	case pgtype.Timestamptz:
		if !x.Valid {
			return nil
		}
		return x.Time.In(time.Local)
	case pgtype.Date:
		if !x.Valid {
			return nil
		}
		return x.Time
	case pgtype.Float8:
		if !x.Valid {
			return nil
		}
		return x.Float64
	default:
		return v
	}
}

func splitColumns(s string) []string {
	parts := strings.Split(s, ", ")
	for i, p := range parts {
		parts[i] = strings.Trim(p, `"`)
	}
	return parts
}

// Source fixtures. Columns are TEXT as in the legacy database; the
// person_film_work table deliberately stores its columns in a different
// physical order than the registry.
var sourceDDL = map[string]string{
	"genre":            `CREATE TABLE genre (id TEXT, name TEXT, description TEXT, created_at TEXT, updated_at TEXT)`,
	"person":           `CREATE TABLE person (id TEXT, full_name TEXT, created_at TEXT, updated_at TEXT)`,
	"film_work":        `CREATE TABLE film_work (id TEXT, title TEXT, description TEXT, creation_date TEXT, file_path TEXT, rating REAL, type TEXT, created_at TEXT, updated_at TEXT)`,
	"genre_film_work":  `CREATE TABLE genre_film_work (id TEXT, genre_id TEXT, film_work_id TEXT, created_at TEXT)`,
	"person_film_work": `CREATE TABLE person_film_work (id TEXT, film_work_id TEXT, person_id TEXT, role TEXT, created_at TEXT)`,
}

const ts = "2021-06-16 20:14:09.221838+00"

// openSource returns an in-memory SQLite database holding the named tables.
func openSource(t *testing.T, tables ...string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, table := range tables {
		if _, err := db.Exec(sourceDDL[table]); err != nil {
			t.Fatalf("create %s: %v", table, err)
		}
	}
	return db
}

// insertRows adds rows to a source table.
func insertRows(t *testing.T, db *sql.DB, table string, rows ...[]any) {
	t.Helper()

	for _, row := range rows {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(row)), ", ")
		if _, err := db.Exec(fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, marks), row...); err != nil {
			t.Fatalf("insert into %s: %v", table, err)
		}
	}
}

// genreRows returns n valid genre rows with deterministic ids.
// filmWorkRows returns n valid film_work rows in registry column order.
func filmWorkRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{uuidN(i + 1).String(), fmt.Sprintf("Film %d", i+1), nil, "1979-05-25", nil, 8.5, "movie", ts, ts}
	}
	return rows
}

func genreRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{uuidN(i + 1).String(), fmt.Sprintf("Genre %d", i+1), nil, ts, ts}
	}
	return rows
}

// uuidN returns a deterministic uuid for fixtures.
func uuidN(n int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("fixture-%d", n)))
}

// seedCatalogue fills every source table with a small consistent catalogue.
func seedCatalogue(t *testing.T, db *sql.DB) {
	t.Helper()

	film1, film2 := uuidN(100).String(), uuidN(101).String()
	drama, comedy := uuidN(200).String(), uuidN(201).String()
	scott, weaver := uuidN(300).String(), uuidN(301).String()

	insertRows(t, db, "film_work",
		[]any{film1, "Alien", "In space no one can hear you scream", "1979-05-25", nil, 8.5, "movie", ts, ts},
		[]any{film2, "Star Trek", nil, nil, "", nil, "tv_show", ts, ts},
	)
	insertRows(t, db, "genre",
		[]any{drama, "Drama", "", ts, ts},
		[]any{comedy, "Comedy", nil, ts, ts},
	)
	insertRows(t, db, "genre_film_work",
		[]any{uuidN(400).String(), drama, film1, ts},
		[]any{uuidN(401).String(), comedy, film2, ts},
	)
	insertRows(t, db, "person",
		[]any{scott, "Ridley Scott", ts, ts},
		[]any{weaver, "Sigourney Weaver", ts, ts},
	)
	// Physical order: id, film_work_id, person_id, role, created_at
	insertRows(t, db, "person_film_work",
		[]any{uuidN(500).String(), film1, scott, "director", ts},
		[]any{uuidN(501).String(), film1, weaver, "actor", ts},
	)
}

// recordingMetrics captures metric calls.
type recordingMetrics struct {
	written  map[string]int64
	verified map[string]int
	finished map[string]core.TableState
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		written:  make(map[string]int64),
		verified: make(map[string]int),
		finished: make(map[string]core.TableState),
	}
}

func (m *recordingMetrics) BatchWritten(table string, rows int, inserted int64, d time.Duration) {
	m.written[table] += inserted
}

func (m *recordingMetrics) BatchVerified(table string, rows int, d time.Duration) {
	m.verified[table] += rows
}

func (m *recordingMetrics) TableFinished(table string, state core.TableState, d time.Duration) {
	m.finished[table] = state
}

// load collects every record of table from db.
func load(t *testing.T, db *sql.DB, table string) []core.Record {
	t.Helper()

	ext, err := core.NewExtractor(db, table, core.DefaultBatchSize, nil)
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	var all []core.Record
	for batch, err := range ext.Load(context.Background()) {
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		all = append(all, batch...)
	}
	return all
}
