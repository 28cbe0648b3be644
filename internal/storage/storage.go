package storage

import (
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists the products of one category. Calling it again for the
	// same category replaces what was written before.
	Store(category string, products []*types.Product) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
