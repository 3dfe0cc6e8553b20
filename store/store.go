// Package store provides database access to the FAQ bank.
package store

import (
	"time"

	"github.com/campushq/advisor/internal/profile"
	"github.com/campushq/advisor/plugin/cache"
)

// Store provides database access to the FAQ bank with a read-through cache.
type Store struct {
	profile *profile.Profile
	driver  Driver

	faqCache *cache.LRU
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:   driver,
		profile:  profile,
		faqCache: cache.NewLRU(1000, 10*time.Minute),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}
