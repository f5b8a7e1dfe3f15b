package polar

import (
	"encoding/json"
	"fmt"
)

// OrderEvent is the canonical shape of an order.created payload after
// normalization.
type OrderEvent struct {
	ID         string
	Email      string
	ProductID  string
	PriceID    string
	Amount     int64
	Currency   string
	CreatedAt  string
	ModifiedAt string
	CheckoutID string
	Metadata   map[string]any
}

// Emitted payload field names have varied across Polar SDK versions
// (camelCase vs snake_case). Each canonical field maps to an ordered list
// of candidate keys; the first present wins. This table is the single
// place that variance is handled.
var orderFieldKeys = map[string][]string{
	"id":         {"id"},
	"email":      {"customerEmail", "customer_email"},
	"productId":  {"productId", "product_id"},
	"priceId":    {"productPriceId", "product_price_id", "price_id", "priceId"},
	"amount":     {"amount", "total", "totalAmount"},
	"currency":   {"currency"},
	"createdAt":  {"createdAt", "created_at"},
	"modifiedAt": {"modifiedAt", "modified_at"},
	"checkoutId": {"checkoutId", "checkout_id"},
}

// ParseOrderCreated normalizes an order.created payload. It tolerates both
// field-naming conventions and the nested customer object some SDK
// versions emit the email under.
func ParseOrderCreated(data json.RawMessage) (*OrderEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}

	ev := &OrderEvent{
		ID:         firstString(raw, orderFieldKeys["id"]),
		Email:      firstString(raw, orderFieldKeys["email"]),
		ProductID:  firstString(raw, orderFieldKeys["productId"]),
		PriceID:    firstString(raw, orderFieldKeys["priceId"]),
		Amount:     firstInt(raw, orderFieldKeys["amount"]),
		Currency:   firstString(raw, orderFieldKeys["currency"]),
		CreatedAt:  firstString(raw, orderFieldKeys["createdAt"]),
		ModifiedAt: firstString(raw, orderFieldKeys["modifiedAt"]),
		CheckoutID: firstString(raw, orderFieldKeys["checkoutId"]),
	}

	// Last resort for the email: the nested customer object.
	if ev.Email == "" {
		if customer, ok := raw["customer"].(map[string]any); ok {
			if email, ok := customer["email"].(string); ok {
				ev.Email = email
			}
		}
	}

	if meta, ok := raw["metadata"].(map[string]any); ok {
		ev.Metadata = meta
	}

	if ev.ID == "" {
		return nil, fmt.Errorf("order payload has no id")
	}
	if ev.ProductID == "" {
		return nil, fmt.Errorf("order %s has no product id", ev.ID)
	}
	return ev, nil
}

func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstInt(raw map[string]any, keys []string) int64 {
	for _, key := range keys {
		// encoding/json decodes numbers in a map as float64.
		if f, ok := raw[key].(float64); ok {
			return int64(f)
		}
	}
	return 0
}
