package aggregate

import (
	"context"
	"fmt"

	"github.com/example/bakery-pos/internal/infrastructure/store"
)

// Aggregate defines the interface for event-sourced aggregates
type Aggregate interface {
	GetID() string
	GetVersion() int
	SetVersion(int)
	ApplyEvent(store.Event) error
}

// LoadAggregate rebuilds an aggregate by replaying its events.
// Returns the aggregate, a boolean indicating if any event was found, and any error
func LoadAggregate[T Aggregate](
	ctx context.Context,
	eventStore store.EventStoreInterface,
	id string,
	newAggregate func() T,
) (T, bool, error) {
	var zero T

	events, err := eventStore.GetEvents(ctx, id)
	if err != nil {
		return zero, false, fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		return zero, false, nil
	}

	agg := newAggregate()
	for _, event := range events {
		if err := agg.ApplyEvent(event); err != nil {
			return zero, false, fmt.Errorf("failed to apply event: %w", err)
		}
	}
	return agg, true, nil
}
