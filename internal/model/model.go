package model

import "time"

// User mirrors the identity owned by the external auth layer. Only the
// fields this service needs are kept: email for webhook resolution and the
// Polar customer ID once one has been resolved or created.
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PolarCustomerID *string   `json:"polar_customer_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Order is a one-time purchase, sourced only from order webhooks.
// Vendor timestamps are kept as the ISO-8601 strings Polar reports; local
// CreatedAt/UpdatedAt track the row itself.
type Order struct {
	ID              int64          `json:"-"`
	PolarID         string         `json:"id"`
	UserID          int64          `json:"user_id"`
	ProductID       string         `json:"product_id"`
	PriceID         *string        `json:"price_id,omitempty"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Status          string         `json:"status"`
	CheckoutID      *string        `json:"checkout_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	VendorCreatedAt string         `json:"created_at"`
	VendorModified  *string        `json:"modified_at,omitempty"`
	CreatedAt       time.Time      `json:"-"`
	UpdatedAt       time.Time      `json:"-"`
}

// Subscription is a recurring purchase reconciled from Polar. All status
// transitions are vendor-driven and mirrored, never computed locally.
type Subscription struct {
	ID                  int64          `json:"-"`
	PolarID             string         `json:"id"`
	CustomerID          string         `json:"customer_id"`
	ProductID           string         `json:"product_id"`
	Status              string         `json:"status"`
	Amount              *int64         `json:"amount,omitempty"`
	Currency            *string        `json:"currency,omitempty"`
	RecurringInterval   *string        `json:"recurring_interval,omitempty"`
	CurrentPeriodStart  string         `json:"current_period_start"`
	CurrentPeriodEnd    *string        `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd   bool           `json:"cancel_at_period_end"`
	CancellationReason  *string        `json:"customer_cancellation_reason,omitempty"`
	CancellationComment *string        `json:"customer_cancellation_comment,omitempty"`
	StartedAt           *string        `json:"started_at,omitempty"`
	EndedAt             *string        `json:"ended_at,omitempty"`
	CheckoutID          *string        `json:"checkout_id,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	VendorCreatedAt     string         `json:"created_at"`
	VendorModified      *string        `json:"modified_at,omitempty"`
	CreatedAt           time.Time      `json:"-"`
	UpdatedAt           time.Time      `json:"-"`
}

// Product is a read-only cache entry for the Polar catalog.
type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurringInterval *string   `json:"recurring_interval,omitempty"`
	Prices            []Price   `json:"prices"`
	SyncedAt          time.Time `json:"-"`
}

// Price is one entry in a product's ordered price list. Amount is in minor
// currency units.
type Price struct {
	ID                string  `json:"id"`
	Amount            int64   `json:"amount"`
	Currency          string  `json:"currency"`
	RecurringInterval *string `json:"recurring_interval,omitempty"`
}

// Purchase kinds for the read-side union.
const (
	PurchaseKindSubscription = "subscription"
	PurchaseKindOrder        = "order"
)

// Purchase is the derived read-side record: an Order or a Subscription
// joined with its Product. Exactly one of Subscription/Order is set,
// indicated by Kind. Never persisted.
type Purchase struct {
	Kind         string        `json:"kind"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Order        *Order        `json:"order,omitempty"`
	Product      *Product      `json:"product"`
}

// Session is a logged-in browser session.
type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
