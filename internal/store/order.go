package store

import (
	"database/sql"
	"fmt"

	"github.com/wrenfield/polarkit/internal/model"
)

type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func scanOrder(scanner interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var priceID, checkoutID, modified, meta sql.NullString
	err := scanner.Scan(
		&o.ID, &o.PolarID, &o.UserID, &o.ProductID, &priceID, &o.Amount,
		&o.Currency, &o.Status, &checkoutID, &meta, &o.VendorCreatedAt,
		&modified, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if priceID.Valid {
		o.PriceID = &priceID.String
	}
	if checkoutID.Valid {
		o.CheckoutID = &checkoutID.String
	}
	if modified.Valid {
		o.VendorModified = &modified.String
	}
	o.Metadata, err = unmarshalMetadata(meta)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const orderCols = `id, polar_id, user_id, product_id, price_id, amount, currency, status, checkout_id, metadata, vendor_created_at, vendor_modified_at, created_at, updated_at`

// Upsert inserts the order or, when a row with the same Polar order ID
// already exists, overwrites its vendor-sourced fields. The vendor is the
// source of truth, so last writer wins.
func (s *OrderStore) Upsert(o *model.Order) (*model.Order, error) {
	meta, err := marshalMetadata(o.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO orders (polar_id, user_id, product_id, price_id, amount, currency, status, checkout_id, metadata, vendor_created_at, vendor_modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(polar_id) DO UPDATE SET
		   user_id = excluded.user_id,
		   product_id = excluded.product_id,
		   price_id = excluded.price_id,
		   amount = excluded.amount,
		   currency = excluded.currency,
		   status = excluded.status,
		   checkout_id = excluded.checkout_id,
		   metadata = excluded.metadata,
		   vendor_created_at = excluded.vendor_created_at,
		   vendor_modified_at = excluded.vendor_modified_at,
		   updated_at = CURRENT_TIMESTAMP`,
		o.PolarID, o.UserID, o.ProductID, o.PriceID, o.Amount, o.Currency,
		o.Status, o.CheckoutID, meta, o.VendorCreatedAt, o.VendorModified,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert order: %w", err)
	}
	return s.GetByPolarID(o.PolarID)
}

func (s *OrderStore) GetByPolarID(polarID string) (*model.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderCols+` FROM orders WHERE polar_id = ?`, polarID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order by polar id: %w", err)
	}
	return o, nil
}

// ListByUserID returns all of a user's orders, oldest first.
func (s *OrderStore) ListByUserID(userID int64) ([]*model.Order, error) {
	rows, err := s.db.Query(
		`SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (s *OrderStore) CountByUserID(userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
