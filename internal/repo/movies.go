package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const movieColumns = `id, file_id, description, code, created_at`

// InsertMovie stores a new movie. A taken code yields ErrDuplicateCode.
func (r *PostgresRepository) InsertMovie(ctx context.Context, movie Movie) (*Movie, error) {
	const q = `
INSERT INTO movies (file_id, description, code)
VALUES ($1, $2, $3)
RETURNING ` + movieColumns + `;
`
	var m Movie
	err := r.pool.QueryRow(ctx, q, movie.FileID, movie.Description, movie.Code).
		Scan(&m.ID, &m.FileID, &m.Description, &m.Code, &m.CreatedAt)
	if isPgUniqueViolation(err) {
		return nil, ErrDuplicateCode
	}
	if err != nil {
		return nil, fmt.Errorf("insert movie: %w", err)
	}
	return &m, nil
}

// GetMovieByCode returns the movie stored under code or ErrNotFound.
func (r *PostgresRepository) GetMovieByCode(ctx context.Context, code string) (*Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE code = $1 LIMIT 1;`
	var m Movie
	err := r.pool.QueryRow(ctx, q, code).Scan(&m.ID, &m.FileID, &m.Description, &m.Code, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie by code: %w", err)
	}
	return &m, nil
}

// ListMovies returns the whole catalog, most recent first.
func (r *PostgresRepository) ListMovies(ctx context.Context) ([]Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies ORDER BY created_at DESC, id DESC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return collectMovies(rows)
}

// CountMovies returns the catalog size.
func (r *PostgresRepository) CountMovies(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

// ListMoviesPage returns one 1-based page of the most-recent-first listing.
func (r *PostgresRepository) ListMoviesPage(ctx context.Context, page, pageSize int) ([]Movie, error) {
	limit, offset := pageBounds(page, pageSize)
	const q = `SELECT ` + movieColumns + ` FROM movies ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2;`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movies page: %w", err)
	}
	return collectMovies(rows)
}

func collectMovies(rows pgx.Rows) ([]Movie, error) {
	defer rows.Close()

	var movies []Movie
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.FileID, &m.Description, &m.Code, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return movies, nil
}
