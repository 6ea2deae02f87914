package repo

import (
	"context"
	"io/fs"
)

// Repository defines the interface for catalog persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Users
	UpsertUser(ctx context.Context, profile UserProfile) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int, error)

	// Movies
	InsertMovie(ctx context.Context, movie Movie) (*Movie, error)
	GetMovieByCode(ctx context.Context, code string) (*Movie, error)
	ListMovies(ctx context.Context) ([]Movie, error)
	CountMovies(ctx context.Context) (int, error)
	ListMoviesPage(ctx context.Context, page, pageSize int) ([]Movie, error)
}
