package store

import (
	"database/sql"
	"fmt"

	"github.com/wrenfield/polarkit/internal/model"
)

type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.Subscription, error) {
	var sub model.Subscription
	var amount sql.NullInt64
	var currency, interval, periodEnd, reason, comment sql.NullString
	var startedAt, endedAt, checkoutID, meta, modified sql.NullString
	var cancelAtPeriodEnd int
	err := scanner.Scan(
		&sub.ID, &sub.PolarID, &sub.CustomerID, &sub.ProductID, &sub.Status,
		&amount, &currency, &interval, &sub.CurrentPeriodStart, &periodEnd,
		&cancelAtPeriodEnd, &reason, &comment, &startedAt, &endedAt,
		&checkoutID, &meta, &sub.VendorCreatedAt, &modified,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		sub.Amount = &amount.Int64
	}
	for _, f := range []struct {
		src sql.NullString
		dst **string
	}{
		{currency, &sub.Currency},
		{interval, &sub.RecurringInterval},
		{periodEnd, &sub.CurrentPeriodEnd},
		{reason, &sub.CancellationReason},
		{comment, &sub.CancellationComment},
		{startedAt, &sub.StartedAt},
		{endedAt, &sub.EndedAt},
		{checkoutID, &sub.CheckoutID},
		{modified, &sub.VendorModified},
	} {
		if f.src.Valid {
			v := f.src.String
			*f.dst = &v
		}
	}
	sub.CancelAtPeriodEnd = cancelAtPeriodEnd != 0
	sub.Metadata, err = unmarshalMetadata(meta)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

const subscriptionCols = `id, polar_id, customer_id, product_id, status, amount, currency, recurring_interval, current_period_start, current_period_end, cancel_at_period_end, cancellation_reason, cancellation_comment, started_at, ended_at, checkout_id, metadata, vendor_created_at, vendor_modified_at, created_at, updated_at`

// Upsert inserts the subscription or overwrites the existing row keyed by
// the Polar subscription ID. Mirrors the vendor state verbatim.
func (s *SubscriptionStore) Upsert(sub *model.Subscription) (*model.Subscription, error) {
	meta, err := marshalMetadata(sub.Metadata)
	if err != nil {
		return nil, err
	}
	cancel := 0
	if sub.CancelAtPeriodEnd {
		cancel = 1
	}
	_, err = s.db.Exec(
		`INSERT INTO subscriptions (polar_id, customer_id, product_id, status, amount, currency, recurring_interval, current_period_start, current_period_end, cancel_at_period_end, cancellation_reason, cancellation_comment, started_at, ended_at, checkout_id, metadata, vendor_created_at, vendor_modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(polar_id) DO UPDATE SET
		   customer_id = excluded.customer_id,
		   product_id = excluded.product_id,
		   status = excluded.status,
		   amount = excluded.amount,
		   currency = excluded.currency,
		   recurring_interval = excluded.recurring_interval,
		   current_period_start = excluded.current_period_start,
		   current_period_end = excluded.current_period_end,
		   cancel_at_period_end = excluded.cancel_at_period_end,
		   cancellation_reason = excluded.cancellation_reason,
		   cancellation_comment = excluded.cancellation_comment,
		   started_at = excluded.started_at,
		   ended_at = excluded.ended_at,
		   checkout_id = excluded.checkout_id,
		   metadata = excluded.metadata,
		   vendor_created_at = excluded.vendor_created_at,
		   vendor_modified_at = excluded.vendor_modified_at,
		   updated_at = CURRENT_TIMESTAMP`,
		sub.PolarID, sub.CustomerID, sub.ProductID, sub.Status, sub.Amount,
		sub.Currency, sub.RecurringInterval, sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd, cancel, sub.CancellationReason,
		sub.CancellationComment, sub.StartedAt, sub.EndedAt, sub.CheckoutID,
		meta, sub.VendorCreatedAt, sub.VendorModified,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return s.GetByPolarID(sub.PolarID)
}

func (s *SubscriptionStore) GetByPolarID(polarID string) (*model.Subscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionCols+` FROM subscriptions WHERE polar_id = ?`, polarID)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription by polar id: %w", err)
	}
	return sub, nil
}

// ListByCustomerID returns all subscriptions reconciled for a Polar
// customer, oldest first.
func (s *SubscriptionStore) ListByCustomerID(customerID string) ([]*model.Subscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE customer_id = ? ORDER BY id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by customer: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

func (s *SubscriptionStore) CountByCustomerID(customerID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subscriptions WHERE customer_id = ?`, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}
