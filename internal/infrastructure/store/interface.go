package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned when another writer appended the same
// aggregate version first.
var ErrVersionConflict = errors.New("event version conflict")

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
}

// Publisher forwards stored events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
