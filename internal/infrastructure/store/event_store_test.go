package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(Event))
	return nil
}

func TestEventStore_AppendAndGet(t *testing.T) {
	pub := &recordingPublisher{}
	es := NewEventStore(pub, nil)
	ctx := context.Background()

	first, err := es.Append(ctx, "order-1", "Order", "OrderPlaced", map[string]string{"a": "b"})
	require.NoError(t, err)
	second, err := es.Append(ctx, "order-1", "Order", "OrderNoted", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.JSONEq(t, `{"a":"b"}`, string(first.Data))

	events, err := es.GetEvents(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "OrderPlaced", events[0].EventType)

	assert.Equal(t, []string{"order-1", "order-1"}, pub.keys)
	assert.Equal(t, first.ID, pub.events[0].ID)
}

func TestEventStore_GetAllEvents_CreationOrder(t *testing.T) {
	es := NewEventStore(nil, nil)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := es.Append(ctx, id, "Order", "OrderPlaced", id)
		require.NoError(t, err)
	}

	all, err := es.GetAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].AggregateID)
	assert.Equal(t, "a", all[1].AggregateID)
	assert.Equal(t, "b", all[2].AggregateID)
}

func TestEventStore_GetEvents_ReturnsCopy(t *testing.T) {
	es := NewEventStore(nil, nil)
	ctx := context.Background()
	_, err := es.Append(ctx, "order-1", "Order", "OrderPlaced", nil)
	require.NoError(t, err)

	events, _ := es.GetEvents(ctx, "order-1")
	events[0].EventType = "changed"

	again, _ := es.GetEvents(ctx, "order-1")
	assert.Equal(t, "OrderPlaced", again[0].EventType)
}

func TestEventStore_PublishFailure(t *testing.T) {
	es := NewEventStore(&recordingPublisher{err: errors.New("broker down")}, nil)

	_, err := es.Append(context.Background(), "order-1", "Order", "OrderPlaced", nil)

	assert.ErrorContains(t, err, "broker down")
}

func TestEventStore_UnmarshalableData(t *testing.T) {
	es := NewEventStore(nil, nil)

	_, err := es.Append(context.Background(), "order-1", "Order", "OrderPlaced", make(chan int))

	var jsonErr *json.UnsupportedTypeError
	assert.ErrorAs(t, err, &jsonErr)
}
