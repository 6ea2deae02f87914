package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// -- Users --

func (r *SQLiteRepository) UpsertUser(ctx context.Context, profile UserProfile) (*User, error) {
	const q = `
INSERT INTO users (id, full_name, username, phone_number, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    full_name = excluded.full_name,
    username = excluded.username,
    phone_number = excluded.phone_number,
    updated_at = excluded.updated_at
RETURNING id, full_name, username, phone_number, created_at, updated_at;
`
	ts := r.timestamp()
	row := r.db.QueryRowContext(ctx, q, profile.ID, profile.FullName, profile.Username, profile.PhoneNumber, ts, ts)

	var u User
	if err := row.Scan(&u.ID, &u.FullName, &u.Username, &u.PhoneNumber, sqliteTime{&u.CreatedAt}, sqliteTime{&u.UpdatedAt}); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	const q = `
SELECT id, full_name, username, phone_number, created_at, updated_at
FROM users
WHERE id = ?
LIMIT 1;
`
	var u User
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.FullName, &u.Username, &u.PhoneNumber, sqliteTime{&u.CreatedAt}, sqliteTime{&u.UpdatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at ASC, id ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// -- Movies --

func (r *SQLiteRepository) InsertMovie(ctx context.Context, movie Movie) (*Movie, error) {
	const q = `
INSERT INTO movies (file_id, description, code, created_at)
VALUES (?, ?, ?, ?)
RETURNING ` + movieColumns + `;
`
	var m Movie
	err := r.db.QueryRowContext(ctx, q, movie.FileID, movie.Description, movie.Code, r.timestamp()).
		Scan(&m.ID, &m.FileID, &m.Description, &m.Code, sqliteTime{&m.CreatedAt})
	if isSQLiteUniqueViolation(err) {
		return nil, ErrDuplicateCode
	}
	if err != nil {
		return nil, fmt.Errorf("insert movie: %w", err)
	}
	return &m, nil
}

func (r *SQLiteRepository) GetMovieByCode(ctx context.Context, code string) (*Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE code = ? LIMIT 1;`
	var m Movie
	err := r.db.QueryRowContext(ctx, q, code).Scan(&m.ID, &m.FileID, &m.Description, &m.Code, sqliteTime{&m.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie by code: %w", err)
	}
	return &m, nil
}

func (r *SQLiteRepository) ListMovies(ctx context.Context) ([]Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return scanSQLiteMovies(rows)
}

func (r *SQLiteRepository) CountMovies(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListMoviesPage(ctx context.Context, page, pageSize int) ([]Movie, error) {
	limit, offset := pageBounds(page, pageSize)
	const q = `SELECT ` + movieColumns + ` FROM movies ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movies page: %w", err)
	}
	return scanSQLiteMovies(rows)
}

func scanSQLiteMovies(rows *sql.Rows) ([]Movie, error) {
	defer rows.Close()

	var movies []Movie
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.FileID, &m.Description, &m.Code, sqliteTime{&m.CreatedAt}); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return movies, nil
}
