// Package tables registers the movie catalogue tables with the core registry.
// Import this package for its side effects to make every table available.
package tables

import (
	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

// Timestamp columns shared by every table. Both are required.
var (
	createdAt = core.FieldSpec{Name: "created_at", Type: core.FieldTimestamp}
	updatedAt = core.FieldSpec{Name: "updated_at", Type: core.FieldTimestamp}
)

func text(v any) pgtype.Text         { return v.(pgtype.Text) }
func stamp(v any) pgtype.Timestamptz { return v.(pgtype.Timestamptz) }
