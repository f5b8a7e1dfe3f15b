package polar

import (
	"encoding/json"
	"testing"
)

func TestParseOrderCreatedCamelCase(t *testing.T) {
	payload := `{
		"id": "order_1",
		"customerEmail": "alice@example.com",
		"productId": "prod_1",
		"productPriceId": "price_1",
		"amount": 1999,
		"currency": "usd",
		"createdAt": "2026-08-01T12:00:00Z",
		"checkoutId": "co_1",
		"metadata": {"ref": "launch"}
	}`

	ev, err := ParseOrderCreated(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", ev.Email)
	}
	if ev.ProductID != "prod_1" {
		t.Errorf("product id = %q, want prod_1", ev.ProductID)
	}
	if ev.PriceID != "price_1" {
		t.Errorf("price id = %q, want price_1", ev.PriceID)
	}
	if ev.Amount != 1999 {
		t.Errorf("amount = %d, want 1999", ev.Amount)
	}
	if ev.Metadata["ref"] != "launch" {
		t.Errorf("metadata ref = %v, want launch", ev.Metadata["ref"])
	}
}

func TestParseOrderCreatedSnakeCase(t *testing.T) {
	payload := `{
		"id": "order_2",
		"customer_email": "bob@example.com",
		"product_id": "prod_2",
		"product_price_id": "price_2",
		"total": 500,
		"currency": "eur",
		"created_at": "2026-08-02T08:30:00Z",
		"checkout_id": "co_2"
	}`

	ev, err := ParseOrderCreated(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Email != "bob@example.com" {
		t.Errorf("email = %q, want bob@example.com", ev.Email)
	}
	if ev.ProductID != "prod_2" {
		t.Errorf("product id = %q, want prod_2", ev.ProductID)
	}
	if ev.PriceID != "price_2" {
		t.Errorf("price id = %q, want price_2", ev.PriceID)
	}
	if ev.Amount != 500 {
		t.Errorf("amount = %d, want 500", ev.Amount)
	}
	if ev.CreatedAt != "2026-08-02T08:30:00Z" {
		t.Errorf("created at = %q", ev.CreatedAt)
	}
}

func TestParseOrderCreatedCamelCaseWins(t *testing.T) {
	payload := `{
		"id": "order_3",
		"customerEmail": "camel@example.com",
		"customer_email": "snake@example.com",
		"productId": "prod_camel",
		"product_id": "prod_snake",
		"amount": 100,
		"total": 999,
		"currency": "usd",
		"createdAt": "2026-08-03T00:00:00Z"
	}`

	ev, err := ParseOrderCreated(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Email != "camel@example.com" {
		t.Errorf("email = %q, camelCase variant must win", ev.Email)
	}
	if ev.ProductID != "prod_camel" {
		t.Errorf("product id = %q, camelCase variant must win", ev.ProductID)
	}
	if ev.Amount != 100 {
		t.Errorf("amount = %d, amount must win over total", ev.Amount)
	}
}

func TestParseOrderCreatedNestedCustomerEmail(t *testing.T) {
	payload := `{
		"id": "order_4",
		"product_id": "prod_4",
		"amount": 50,
		"currency": "usd",
		"created_at": "2026-08-04T00:00:00Z",
		"customer": {"email": "nested@example.com"}
	}`

	ev, err := ParseOrderCreated(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Email != "nested@example.com" {
		t.Errorf("email = %q, want nested@example.com", ev.Email)
	}
}

func TestParseOrderCreatedMissingID(t *testing.T) {
	_, err := ParseOrderCreated(json.RawMessage(`{"product_id": "prod_x"}`))
	if err == nil {
		t.Fatal("expected error for payload without id")
	}
}

func TestParseOrderCreatedMissingProduct(t *testing.T) {
	_, err := ParseOrderCreated(json.RawMessage(`{"id": "order_x"}`))
	if err == nil {
		t.Fatal("expected error for payload without product id")
	}
}
