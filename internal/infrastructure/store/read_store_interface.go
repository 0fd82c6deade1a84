package store

import "context"

// Read model collections.
const CollectionOrders = "orders"

// ReadStoreInterface defines the interface for read model storage
type ReadStoreInterface interface {
	// Set stores a read model, replacing any existing one with the same id
	Set(ctx context.Context, collection, id string, data any) error

	// Get retrieves a read model by id
	Get(ctx context.Context, collection, id string) (any, bool, error)

	// GetAll retrieves all items in a collection in insertion order
	GetAll(ctx context.Context, collection string) ([]any, error)

	// Delete removes a read model
	Delete(ctx context.Context, collection, id string) error
}
