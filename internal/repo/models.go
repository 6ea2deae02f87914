package repo

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateCode is returned when a movie code is already taken.
	ErrDuplicateCode = errors.New("duplicate movie code")
)

// DefaultPageSize applies when a caller asks for a non-positive page size.
const DefaultPageSize = 10

// User represents the users table row.
type User struct {
	ID          int64
	FullName    string
	Username    string
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserProfile carries data used to upsert a user.
type UserProfile struct {
	ID          int64
	FullName    string
	Username    string
	PhoneNumber string
}

// Movie represents the movies table row.
type Movie struct {
	ID          int64
	FileID      string
	Description string
	Code        string
	CreatedAt   time.Time
}

func pageBounds(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return pageSize, (page - 1) * pageSize
}
