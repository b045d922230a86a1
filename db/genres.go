package db

import (
	"context"
	"fmt"

	"symfeat/data"
)

// One row per work: the genre with the most occurrences, ties going to the
// row inserted first.
const genresQuery = `
    SELECT w.id, w.path_leadsheet, g.genre, g.occurrences
    FROM works w
    JOIN work_genres g ON g.id = w.id
    ORDER BY w.id, g.occurrences DESC, g.rowid`

// GenreStore reads the EWLD genre annotations. The file is opened read-only
// for every call and closed before returning.
type GenreStore struct {
	path string
}

func NewGenreStore(path string) *GenreStore {
	return &GenreStore{path: path}
}

func (s *GenreStore) Genres(ctx context.Context) ([]data.Genre, error) {
	database, err := open(s.path, true)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	rows, err := database.QueryContext(ctx, genresQuery)
	if err != nil {
		return nil, fmt.Errorf("query genres in %s: %w", s.path, err)
	}
	defer rows.Close()

	var genres []data.Genre
	last := int64(-1)
	for rows.Next() {
		var g data.Genre
		if err := rows.Scan(&g.WorkID, &g.Path, &g.Genre, &g.Occurrences); err != nil {
			return nil, err
		}
		if len(genres) > 0 && g.WorkID == last {
			continue
		}
		last = g.WorkID
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
