package tables

import (
	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func init() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "genre_film_work",
			Label: "Film work genres",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Type: core.FieldUUID},
			{Name: "genre_id", Type: core.FieldUUID},
			{Name: "film_work_id", Type: core.FieldUUID},
			createdAt,
		},
		New: func(v []any) core.Record {
			return GenreFilmWork{
				ID:         v[0].(uuid.UUID),
				GenreID:    v[1].(uuid.UUID),
				FilmWorkID: v[2].(uuid.UUID),
				CreatedAt:  stamp(v[3]),
			}
		},
	})
}

// GenreFilmWork links a film work to one of its genres.
type GenreFilmWork struct {
	ID         uuid.UUID
	GenreID    uuid.UUID
	FilmWorkID uuid.UUID
	CreatedAt  pgtype.Timestamptz
}

func (g GenreFilmWork) Table() string  { return "genre_film_work" }
func (g GenreFilmWork) Key() uuid.UUID { return g.ID }

func (g GenreFilmWork) Values() []any {
	return []any{core.PgUUID(g.ID), core.PgUUID(g.GenreID), core.PgUUID(g.FilmWorkID), g.CreatedAt}
}

func (g GenreFilmWork) Equal(other core.Record) bool {
	o, ok := other.(GenreFilmWork)
	return ok &&
		g.ID == o.ID &&
		g.GenreID == o.GenreID &&
		g.FilmWorkID == o.FilmWorkID &&
		core.SameTimestamp(g.CreatedAt, o.CreatedAt)
}
