package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// FAQ model related methods.
	CreateFAQ(ctx context.Context, create *FAQ) (*FAQ, error)
	ListFAQs(ctx context.Context, find *FindFAQ) ([]*FAQ, error)
	DeleteFAQ(ctx context.Context, delete *DeleteFAQ) error
}
