// Package core provides the migration logic for moving the movie catalogue
// from the legacy SQLite store into the PostgreSQL "content" schema.
//
// The package is independent of process bootstrap: callers hand it an open
// source handle (*sql.DB) and an open destination handle (*pgxpool.Pool or
// anything satisfying [DestinationDB]) and it never reads configuration or
// environment variables itself.
//
// # Architecture
//
// The migration is organized around four components:
//
//   - Registry: table definitions registered at init time by the tables
//     subpackage. Each definition declares the ordered column list, the field
//     rules applied to every value and a constructor for the typed record.
//   - Extractor: streams rows from one source table in fixed-size batches and
//     maps them to records ([Extractor.Extract], [Extractor.Load]).
//   - Writer: inserts record batches into the destination, one transaction per
//     batch, skipping rows whose primary key already exists.
//   - Verifier: re-reads the source in batches and compares every record with
//     the destination row that carries the same id.
//
// [Pipeline] drives the four for every table in [TableOrder], one table at a
// time, and reports per-table results.
//
// # Table Registry
//
// Tables are registered at init time using [Register]:
//
//	core.Register(core.TableDefinition{
//	    Info: core.TableInfo{Key: "genre", Label: "Genres"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "id", Type: core.FieldUUID},
//	        {Name: "name", Type: core.FieldText},
//	        {Name: "description", Type: core.FieldText, Nullable: true},
//	    },
//	    New: newGenre,
//	})
//
// # Batches
//
// Batches are produced lazily as iter.Seq2 sequences. Peak memory is bounded
// by the batch size regardless of the size of the source table, and the
// source cursor is released when the sequence ends, fails or the consumer
// stops early. A sequence is not resumable; ranging over it again re-issues
// the query from the start.
//
// # Error Handling
//
// Every failure is reported through a typed error ([ConfigurationError],
// [ValidationError], [MappingError], [QueryError], [FetchError],
// [TypeMismatchError], [WriteError], [VerificationError]) that wraps its
// cause. [MapError] classifies any of them into a stable code for logs and
// the status report.
package core
