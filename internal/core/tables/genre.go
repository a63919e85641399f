package tables

import (
	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func init() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "genre",
			Label: "Genres",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Type: core.FieldUUID},
			{Name: "name", Type: core.FieldText},
			{Name: "description", Type: core.FieldText, Nullable: true},
			createdAt,
			updatedAt,
		},
		New: func(v []any) core.Record {
			return Genre{
				ID:          v[0].(uuid.UUID),
				Name:        v[1].(string),
				Description: text(v[2]),
				CreatedAt:   stamp(v[3]),
				UpdatedAt:   stamp(v[4]),
			}
		},
	})
}

// Genre is a row of the genre table.
type Genre struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

func (g Genre) Table() string  { return "genre" }
func (g Genre) Key() uuid.UUID { return g.ID }

func (g Genre) Values() []any {
	return []any{core.PgUUID(g.ID), g.Name, g.Description, g.CreatedAt, g.UpdatedAt}
}

func (g Genre) Equal(other core.Record) bool {
	o, ok := other.(Genre)
	return ok &&
		g.ID == o.ID &&
		g.Name == o.Name &&
		g.Description == o.Description &&
		core.SameTimestamp(g.CreatedAt, o.CreatedAt) &&
		core.SameTimestamp(g.UpdatedAt, o.UpdatedAt)
}
