package tables

import (
	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func init() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "person_film_work",
			Label: "Film work people",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Type: core.FieldUUID},
			{Name: "person_id", Type: core.FieldUUID},
			{Name: "film_work_id", Type: core.FieldUUID},
			{Name: "role", Type: core.FieldText},
			createdAt,
		},
		New: func(v []any) core.Record {
			return PersonFilmWork{
				ID:         v[0].(uuid.UUID),
				PersonID:   v[1].(uuid.UUID),
				FilmWorkID: v[2].(uuid.UUID),
				Role:       v[3].(string),
				CreatedAt:  stamp(v[4]),
			}
		},
	})
}

// PersonFilmWork links a person to a film work in a role
// (actor, director, writer).
type PersonFilmWork struct {
	ID         uuid.UUID
	PersonID   uuid.UUID
	FilmWorkID uuid.UUID
	Role       string
	CreatedAt  pgtype.Timestamptz
}

func (p PersonFilmWork) Table() string  { return "person_film_work" }
func (p PersonFilmWork) Key() uuid.UUID { return p.ID }

func (p PersonFilmWork) Values() []any {
	return []any{core.PgUUID(p.ID), core.PgUUID(p.PersonID), core.PgUUID(p.FilmWorkID), p.Role, p.CreatedAt}
}

func (p PersonFilmWork) Equal(other core.Record) bool {
	o, ok := other.(PersonFilmWork)
	return ok &&
		p.ID == o.ID &&
		p.PersonID == o.PersonID &&
		p.FilmWorkID == o.FilmWorkID &&
		p.Role == o.Role &&
		core.SameTimestamp(p.CreatedAt, o.CreatedAt)
}
