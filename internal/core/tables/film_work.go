package tables

import (
	"github.com/JonMunkholm/moviesmigrate/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func init() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "film_work",
			Label: "Film works",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Type: core.FieldUUID},
			{Name: "title", Type: core.FieldText},
			{Name: "description", Type: core.FieldText, Nullable: true},
			{Name: "creation_date", Type: core.FieldDate, Nullable: true},
			{Name: "file_path", Type: core.FieldText, Nullable: true},
			{Name: "rating", Type: core.FieldFloat, Nullable: true},
			{Name: "type", Type: core.FieldText},
			createdAt,
			updatedAt,
		},
		New: func(v []any) core.Record {
			return FilmWork{
				ID:           v[0].(uuid.UUID),
				Title:        v[1].(string),
				Description:  text(v[2]),
				CreationDate: v[3].(pgtype.Date),
				FilePath:     text(v[4]),
				Rating:       v[5].(pgtype.Float8),
				Type:         v[6].(string),
				CreatedAt:    stamp(v[7]),
				UpdatedAt:    stamp(v[8]),
			}
		},
	})
}

// FilmWork is a row of the film_work table: a movie or TV show.
type FilmWork struct {
	ID           uuid.UUID
	Title        string
	Description  pgtype.Text
	CreationDate pgtype.Date
	FilePath     pgtype.Text
	Rating       pgtype.Float8
	Type         string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

func (f FilmWork) Table() string  { return "film_work" }
func (f FilmWork) Key() uuid.UUID { return f.ID }

func (f FilmWork) Values() []any {
	return []any{
		core.PgUUID(f.ID),
		f.Title,
		f.Description,
		f.CreationDate,
		f.FilePath,
		f.Rating,
		f.Type,
		f.CreatedAt,
		f.UpdatedAt,
	}
}

func (f FilmWork) Equal(other core.Record) bool {
	o, ok := other.(FilmWork)
	return ok &&
		f.ID == o.ID &&
		f.Title == o.Title &&
		f.Description == o.Description &&
		core.SameDate(f.CreationDate, o.CreationDate) &&
		f.FilePath == o.FilePath &&
		f.Rating == o.Rating &&
		f.Type == o.Type &&
		core.SameTimestamp(f.CreatedAt, o.CreatedAt) &&
		core.SameTimestamp(f.UpdatedAt, o.UpdatedAt)
}
