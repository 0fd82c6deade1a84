package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/example/bakery-pos/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	ID      string
	Applied []string
	Version int
	failOn  string
}

func (c *counter) GetID() string    { return c.ID }
func (c *counter) GetVersion() int  { return c.Version }
func (c *counter) SetVersion(v int) { c.Version = v }

func (c *counter) ApplyEvent(e store.Event) error {
	if e.EventType == c.failOn {
		return errors.New("boom")
	}
	c.ID = e.AggregateID
	c.Applied = append(c.Applied, e.EventType)
	c.Version = e.Version
	return nil
}

func TestLoadAggregate_ReplaysInOrder(t *testing.T) {
	es := mocks.NewMockEventStore()
	require.NoError(t, es.AddEvent("c-1", "Counter", "First", nil))
	require.NoError(t, es.AddEvent("c-1", "Counter", "Second", nil))

	got, found, err := LoadAggregate(context.Background(), es, "c-1", func() *counter { return &counter{} })

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"First", "Second"}, got.Applied)
	assert.Equal(t, 2, got.GetVersion())
}

func TestLoadAggregate_NotFound(t *testing.T) {
	es := mocks.NewMockEventStore()

	got, found, err := LoadAggregate(context.Background(), es, "missing", func() *counter { return &counter{} })

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestLoadAggregate_Errors(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		es := mocks.NewMockEventStore()
		es.GetEventsErr = errors.New("db down")

		_, _, err := LoadAggregate(context.Background(), es, "c-1", func() *counter { return &counter{} })

		assert.ErrorContains(t, err, "db down")
	})

	t.Run("apply error", func(t *testing.T) {
		es := mocks.NewMockEventStore()
		require.NoError(t, es.AddEvent("c-1", "Counter", "Bad", nil))

		_, found, err := LoadAggregate(context.Background(), es, "c-1", func() *counter { return &counter{failOn: "Bad"} })

		assert.ErrorContains(t, err, "failed to apply event")
		assert.False(t, found)
	})
}
