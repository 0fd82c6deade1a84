package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/bakery-pos/internal/readmodel"
)

var ErrUnsupportedCollection = errors.New("collection not supported by this read store")

const readOrdersSchema = `
CREATE TABLE IF NOT EXISTS read_orders (
	id              TEXT PRIMARY KEY,
	idempotency_key TEXT,
	flow            TEXT          NOT NULL,
	payment_method  TEXT          NOT NULL,
	customer        JSONB,
	items           JSONB         NOT NULL,
	subtotal        NUMERIC(12,2) NOT NULL DEFAULT 0,
	discount_total  NUMERIC(12,2) NOT NULL DEFAULT 0,
	total           NUMERIC(12,2) NOT NULL,
	status          TEXT          NOT NULL,
	created_at      TIMESTAMPTZ   NOT NULL
);
ALTER TABLE read_orders ADD COLUMN IF NOT EXISTS subtotal NUMERIC(12,2) NOT NULL DEFAULT 0;
ALTER TABLE read_orders ADD COLUMN IF NOT EXISTS discount_total NUMERIC(12,2) NOT NULL DEFAULT 0`

const orderColumns = `id, idempotency_key, flow, payment_method, customer, items, subtotal, discount_total, total, status, created_at`

// PostgresReadStore implements ReadStoreInterface for the orders collection
// using the read_orders table.
type PostgresReadStore struct {
	db *sql.DB
}

func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// EnsureSchema creates the read_orders table if it does not exist.
func (rs *PostgresReadStore) EnsureSchema(ctx context.Context) error {
	if _, err := rs.db.ExecContext(ctx, readOrdersSchema); err != nil {
		return fmt.Errorf("failed to create read_orders table: %w", err)
	}
	return nil
}

// Set stores a read model
func (rs *PostgresReadStore) Set(ctx context.Context, collection, id string, data any) error {
	if collection != CollectionOrders {
		return fmt.Errorf("%w: %s", ErrUnsupportedCollection, collection)
	}
	o, ok := data.(*readmodel.OrderReadModel)
	if !ok {
		return fmt.Errorf("unexpected order read model type %T", data)
	}

	customerJSON, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}

	_, err = rs.db.ExecContext(ctx, `
		INSERT INTO read_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			items = EXCLUDED.items,
			subtotal = EXCLUDED.subtotal,
			discount_total = EXCLUDED.discount_total,
			total = EXCLUDED.total,
			status = EXCLUDED.status
	`, id, nullString(o.IdempotencyKey), o.Flow, o.PaymentMethod, customerJSON, itemsJSON,
		o.Subtotal.StringFixed(2), o.DiscountTotal.StringFixed(2), o.Total.StringFixed(2), o.Status, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", id, err)
	}
	return nil
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(ctx context.Context, collection, id string) (any, bool, error) {
	if collection != CollectionOrders {
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedCollection, collection)
	}

	row := rs.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM read_orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return o, true, nil
}

// GetAll retrieves all orders, oldest first
func (rs *PostgresReadStore) GetAll(ctx context.Context, collection string) ([]any, error) {
	if collection != CollectionOrders {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCollection, collection)
	}

	rows, err := rs.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM read_orders ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []any
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(ctx context.Context, collection, id string) error {
	if collection != CollectionOrders {
		return fmt.Errorf("%w: %s", ErrUnsupportedCollection, collection)
	}
	if _, err := rs.db.ExecContext(ctx, `DELETE FROM read_orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*readmodel.OrderReadModel, error) {
	var o readmodel.OrderReadModel
	var key sql.NullString
	var customerJSON, itemsJSON []byte
	if err := row.Scan(&o.ID, &key, &o.Flow, &o.PaymentMethod, &customerJSON, &itemsJSON, &o.Subtotal, &o.DiscountTotal, &o.Total, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.IdempotencyKey = key.String
	if len(customerJSON) > 0 {
		if err := json.Unmarshal(customerJSON, &o.Customer); err != nil {
			return nil, fmt.Errorf("failed to decode customer: %w", err)
		}
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
