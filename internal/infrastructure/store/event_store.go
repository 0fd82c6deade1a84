package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// EventStore keeps events in memory and publishes them after appending.
// It backs the API when no database is configured, and tests.
type EventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	order     []string           // aggregate ids in first-append order
	publisher Publisher
	logger    *zap.Logger
}

// NewEventStore creates a store. publisher may be nil.
func NewEventStore(publisher Publisher, logger *zap.Logger) *EventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStore{
		events:    make(map[string][]Event),
		publisher: publisher,
		logger:    logger.Named("event_store"),
	}
}

// Append stores an event and publishes it
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	version := len(es.events[aggregateID]) + 1
	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
		Version:       version,
	}
	if version == 1 {
		es.order = append(es.order, aggregateID)
	}
	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.mu.Unlock()

	if err := publish(ctx, es.publisher, event); err != nil {
		es.logger.Error("failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return nil, err
	}

	return &event, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	events := make([]Event, len(es.events[aggregateID]))
	copy(events, es.events[aggregateID])
	return events, nil
}

// GetAllEvents returns every event, grouped by aggregate in creation order
func (es *EventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var all []Event
	for _, id := range es.order {
		all = append(all, es.events[id]...)
	}
	return all, nil
}

func publish(ctx context.Context, p Publisher, event Event) error {
	if p == nil {
		return nil
	}
	return p.Publish(ctx, event.AggregateID, event)
}
