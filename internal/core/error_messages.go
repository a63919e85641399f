package core

// # Error Codes Reference
//
// This file classifies migration errors into stable codes. Codes appear in
// the log line of every failed table and in the status report, so an
// operator can tell what went wrong without re-running the migration.
//
// Typed errors are matched first (errors.As), then PostgreSQL SQLSTATE codes,
// then case-insensitive message patterns. The first match wins.
//
// # Configuration (CFG)
//
//	CFG001 - Invalid configuration: unknown table, non-positive batch size or missing store
//	         Action: Fix the configuration; nothing was written
//
// # Source (SRC, MAP, VAL)
//
//	SRC001 - Source query failed: the table could not be queried
//	         Action: Check SQLITE_PATH and that the table exists in the source
//
//	SRC002 - Source fetch failed: reading a batch failed mid-stream
//	         Action: Check the source file for corruption and re-run
//
//	MAP001 - Row mapping failed: a source row is not a valid record
//	         Action: Fix the offending row named in the log and re-run
//
//	VAL001 - Invalid value: a field failed validation
//	         Action: Fix the field named in the log
//
// # Destination (WRT, DB)
//
//	WRT001 - Batch write failed: the batch transaction was rolled back
//	         Action: Earlier batches are committed; re-run after fixing the cause
//
//	WRT002 - Heterogeneous batch: a batch contained records of another table
//	         Action: This is a programming error; report it
//
//	DB003  - Foreign key: referenced record does not exist
//	         Action: Migrate the referenced table first
//
//	DB004  - Connection refused: unable to connect to database
//	DB005  - Connection reset: database connection was interrupted
//	DB006  - Timeout: operation timed out
//	DB007  - Deadlock: database was busy with conflicting operations
//
//	DB008  - Missing table: destination table does not exist
//	         Action: Create the destination schema before migrating
//
//	DB009  - Not null: a required destination column received NULL
//	         Action: Fix the source row or relax the destination schema
//
// # Verification (VER)
//
//	VER001 - Record mismatch: a migrated row differs from its source
//	VER002 - Count mismatch: destination batch size differs from source
//	VER003 - Verification aborted: a store failed during verification
//
// # Run (RUN)
//
//	RUN001 - Cancelled: the run was cancelled
//	RUN002 - Deadline exceeded: the run timed out
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the log for the technical error

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides operator-facing error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Stable code for reference
}

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgConfig = UserMessage{
		Message: "Invalid configuration",
		Action:  "Fix the configuration; nothing was written",
		Code:    "CFG001",
	}
	msgQuery = UserMessage{
		Message: "Source query failed",
		Action:  "Check SQLITE_PATH and that the table exists in the source",
		Code:    "SRC001",
	}
	msgFetch = UserMessage{
		Message: "Source fetch failed",
		Action:  "Check the source file for corruption and re-run",
		Code:    "SRC002",
	}
	msgMapping = UserMessage{
		Message: "Row mapping failed",
		Action:  "Fix the offending row named in the log and re-run",
		Code:    "MAP001",
	}
	msgValidation = UserMessage{
		Message: "Invalid value",
		Action:  "Fix the field named in the log",
		Code:    "VAL001",
	}
	msgWrite = UserMessage{
		Message: "Batch write failed",
		Action:  "Earlier batches are committed; re-run after fixing the cause",
		Code:    "WRT001",
	}
	msgTypeMismatch = UserMessage{
		Message: "Heterogeneous batch",
		Action:  "This is a programming error; report it",
		Code:    "WRT002",
	}
	msgRecordMismatch = UserMessage{
		Message: "Migrated record differs from source",
		Action:  "Inspect both rows in the log; the destination may hold rows from an earlier run",
		Code:    "VER001",
	}
	msgCountMismatch = UserMessage{
		Message: "Destination row count differs from source",
		Action:  "Check for missing rows or rows from an earlier run",
		Code:    "VER002",
	}
	msgVerifyAborted = UserMessage{
		Message: "Verification aborted",
		Action:  "Check connectivity to both stores and re-run verification",
		Code:    "VER003",
	}
)

// sqlStates maps PostgreSQL SQLSTATE codes to messages.
var sqlStates = map[string]UserMessage{
	"23503": {Message: "Referenced record does not exist", Action: "Migrate the referenced table first", Code: "DB003"},
	"42P01": {Message: "Destination table does not exist", Action: "Create the destination schema before migrating", Code: "DB008"},
	"3F000": {Message: "Destination schema does not exist", Action: "Create the destination schema before migrating", Code: "DB008"},
	"23502": {Message: "Required destination column received NULL", Action: "Fix the source row or relax the destination schema", Code: "DB009"},
	"40P01": {Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"},
}

// errorPatterns maps technical error patterns (case-insensitive) to messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg:     UserMessage{Message: "Unable to connect to database", Action: "Check the database host and port", Code: "DB004"},
	},
	{
		pattern: "connection reset",
		msg:     UserMessage{Message: "Database connection was interrupted", Action: "Please try again", Code: "DB005"},
	},
	{
		pattern: "context canceled",
		msg:     UserMessage{Message: "Run was cancelled", Action: "Re-run the migration; committed batches are kept", Code: "RUN001"},
	},
	{
		pattern: "context deadline exceeded",
		msg:     UserMessage{Message: "Run timed out", Action: "Re-run the migration; committed batches are kept", Code: "RUN002"},
	},
	{
		pattern: "timeout",
		msg:     UserMessage{Message: "Operation timed out", Action: "Please try again later", Code: "DB006"},
	},
	{
		pattern: "deadlock",
		msg:     UserMessage{Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for the technical error",
	Code:    "ERR000",
}

// MapError converts an error to an operator-facing message.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		verr  *VerificationError
		cerr  *ConfigurationError
		tmerr *TypeMismatchError
		merr  *MappingError
		qerr  *QueryError
		ferr  *FetchError
		werr  *WriteError
		valer ValidationError
		pgErr *pgconn.PgError
	)

	switch {
	case errors.As(err, &verr):
		switch {
		case verr.Err != nil:
			return msgVerifyAborted
		case verr.Source != nil:
			return msgRecordMismatch
		default:
			return msgCountMismatch
		}
	case errors.As(err, &cerr):
		return msgConfig
	case errors.As(err, &tmerr):
		return msgTypeMismatch
	case errors.As(err, &merr):
		return msgMapping
	case errors.As(err, &valer):
		return msgValidation
	case errors.As(err, &qerr):
		return msgQuery
	case errors.As(err, &ferr):
		return msgFetch
	}

	if errors.As(err, &pgErr) {
		if msg, ok := sqlStates[pgErr.Code]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.As(err, &werr) {
		return msgWrite
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsKnown reports whether err matches a classified failure, as opposed to
// falling through to ERR000.
func IsKnown(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
