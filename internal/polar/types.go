package polar

import "time"

// listEnvelope is Polar's pagination wrapper for list endpoints.
type listEnvelope[T any] struct {
	Items      []T `json:"items"`
	Pagination struct {
		TotalCount int `json:"total_count"`
		MaxPage    int `json:"max_page"`
	} `json:"pagination"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Subscription is the vendor-side subscription shape. Timestamps arrive as
// RFC 3339 and are decoded into time.Time here; callers normalize them to
// ISO-8601 strings at the store boundary.
type Subscription struct {
	ID                  string         `json:"id"`
	CustomerID          string         `json:"customer_id"`
	ProductID           string         `json:"product_id"`
	Status              string         `json:"status"`
	Amount              *int64         `json:"amount"`
	Currency            *string        `json:"currency"`
	RecurringInterval   *string        `json:"recurring_interval"`
	CurrentPeriodStart  time.Time      `json:"current_period_start"`
	CurrentPeriodEnd    *time.Time     `json:"current_period_end"`
	CancelAtPeriodEnd   bool           `json:"cancel_at_period_end"`
	CancellationReason  *string        `json:"customer_cancellation_reason"`
	CancellationComment *string        `json:"customer_cancellation_comment"`
	StartedAt           *time.Time     `json:"started_at"`
	EndedAt             *time.Time     `json:"ended_at"`
	CheckoutID          *string        `json:"checkout_id"`
	Metadata            map[string]any `json:"metadata"`
	CreatedAt           time.Time      `json:"created_at"`
	ModifiedAt          *time.Time     `json:"modified_at"`
}

type Product struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurringInterval *string `json:"recurring_interval"`
	Prices            []Price `json:"prices"`
}

type Price struct {
	ID                string  `json:"id"`
	PriceAmount       int64   `json:"price_amount"`
	PriceCurrency     string  `json:"price_currency"`
	RecurringInterval *string `json:"recurring_interval"`
}

type customerSession struct {
	ID                string `json:"id"`
	CustomerPortalURL string `json:"customer_portal_url"`
}

type checkoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
