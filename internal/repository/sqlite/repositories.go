package sqlite

import (
	"github.com/prn-tf/lendery/internal/repository"
)

// NewRepositories creates the full repository set backed by SQLite.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		Users: NewUserRepository(db),
		Books: NewBookRepository(db),
	}
}
