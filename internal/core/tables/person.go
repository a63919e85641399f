package tables

import (
	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func init() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "person",
			Label: "People",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Type: core.FieldUUID},
			{Name: "full_name", Type: core.FieldText},
			createdAt,
			updatedAt,
		},
		New: func(v []any) core.Record {
			return Person{
				ID:        v[0].(uuid.UUID),
				FullName:  v[1].(string),
				CreatedAt: stamp(v[2]),
				UpdatedAt: stamp(v[3]),
			}
		},
	})
}

// Person is a row of the person table.
type Person struct {
	ID        uuid.UUID
	FullName  string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

func (p Person) Table() string  { return "person" }
func (p Person) Key() uuid.UUID { return p.ID }

func (p Person) Values() []any {
	return []any{core.PgUUID(p.ID), p.FullName, p.CreatedAt, p.UpdatedAt}
}

func (p Person) Equal(other core.Record) bool {
	o, ok := other.(Person)
	return ok &&
		p.ID == o.ID &&
		p.FullName == o.FullName &&
		core.SameTimestamp(p.CreatedAt, o.CreatedAt) &&
		core.SameTimestamp(p.UpdatedAt, o.UpdatedAt)
}
