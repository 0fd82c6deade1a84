package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	versionQuery = `SELECT COALESCE\(MAX\(version\), 0\) FROM events WHERE aggregate_id = \$1`
	insertEvent  = `INSERT INTO events \(id, aggregate_id, aggregate_type, event_type, data, version, created_at\)`
)

var eventColumns = []string{"id", "aggregate_id", "aggregate_type", "event_type", "data", "version", "created_at"}

func newMockPostgresStore(t *testing.T, pub Publisher) (*PostgresEventStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresEventStore(db, pub, nil), mock
}

func TestPostgresEventStore_Append(t *testing.T) {
	pub := &recordingPublisher{}
	es, mock := newMockPostgresStore(t, pub)

	mock.ExpectQuery(versionQuery).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec(insertEvent).
		WithArgs(sqlmock.AnyArg(), "order-1", "Order", "OrderPlaced", []byte(`{"total":"1"}`), 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event, err := es.Append(context.Background(), "order-1", "Order", "OrderPlaced", map[string]string{"total": "1"})

	require.NoError(t, err)
	assert.Equal(t, 3, event.Version)
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.ID, pub.events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_Append_VersionConflict(t *testing.T) {
	pub := &recordingPublisher{}
	es, mock := newMockPostgresStore(t, pub)

	mock.ExpectQuery(versionQuery).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec(insertEvent).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := es.Append(context.Background(), "order-1", "Order", "OrderPlaced", nil)

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_Append_QueryError(t *testing.T) {
	es, mock := newMockPostgresStore(t, nil)

	mock.ExpectQuery(versionQuery).WillReturnError(errors.New("connection reset"))

	_, err := es.Append(context.Background(), "order-1", "Order", "OrderPlaced", nil)

	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_GetEvents(t *testing.T) {
	es, mock := newMockPostgresStore(t, nil)
	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at\s+FROM events\s+WHERE aggregate_id = \$1`).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e1", "order-1", "Order", "OrderPlaced", []byte(`{"a":1}`), 1, ts))

	events, err := es.GetEvents(context.Background(), "order-1")

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, 1, events[0].Version)
	assert.JSONEq(t, `{"a":1}`, string(events[0].Data))
	assert.Equal(t, ts, events[0].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_GetEventsByType(t *testing.T) {
	es, mock := newMockPostgresStore(t, nil)
	ts := time.Now()

	mock.ExpectQuery(`WHERE aggregate_type = \$1`).
		WithArgs("Order").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e1", "o1", "Order", "OrderPlaced", []byte(`{}`), 1, ts).
			AddRow("e2", "o2", "Order", "OrderPlaced", []byte(`{}`), 1, ts))

	events, err := es.GetEventsByType(context.Background(), "Order")

	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_GetAllEvents_ScanError(t *testing.T) {
	es, mock := newMockPostgresStore(t, nil)

	mock.ExpectQuery(`FROM events`).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("e1", "o1", "Order", "OrderPlaced", []byte(`{}`), "not-a-number", time.Now()))

	_, err := es.GetAllEvents(context.Background())

	assert.ErrorContains(t, err, "failed to scan event")
}

func TestPostgresEventStore_EnsureSchema(t *testing.T) {
	es, mock := newMockPostgresStore(t, nil)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS events`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, es.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
