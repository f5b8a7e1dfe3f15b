package store

import (
	"testing"

	"github.com/wrenfield/polarkit/internal/database"
	"github.com/wrenfield/polarkit/internal/model"
)

func setupSubscriptionTestDB(t *testing.T) *SubscriptionStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSubscriptionStore(db)
}

func testSubscription(polarID string) *model.Subscription {
	periodEnd := "2026-09-01T00:00:00Z"
	return &model.Subscription{
		PolarID:            polarID,
		CustomerID:         "cus_1",
		ProductID:          "prod_sub",
		Status:             "active",
		CurrentPeriodStart: "2026-08-01T00:00:00Z",
		CurrentPeriodEnd:   &periodEnd,
		VendorCreatedAt:    "2026-08-01T00:00:00Z",
	}
}

func TestSubscriptionUpsertInsert(t *testing.T) {
	ss := setupSubscriptionTestDB(t)

	sub, err := ss.Upsert(testSubscription("sub_1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sub.Status != "active" {
		t.Errorf("status = %q, want %q", sub.Status, "active")
	}
	if sub.CurrentPeriodEnd == nil || *sub.CurrentPeriodEnd != "2026-09-01T00:00:00Z" {
		t.Errorf("period end = %v, want 2026-09-01T00:00:00Z", sub.CurrentPeriodEnd)
	}
}

func TestSubscriptionUpsertIsIdempotent(t *testing.T) {
	ss := setupSubscriptionTestDB(t)

	if _, err := ss.Upsert(testSubscription("sub_1")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	updated := testSubscription("sub_1")
	updated.Status = "canceled"
	reason := "too_expensive"
	updated.CancellationReason = &reason
	updated.CancelAtPeriodEnd = true
	if _, err := ss.Upsert(updated); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	n, err := ss.CountByCustomerID("cus_1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("subscription count = %d, want 1", n)
	}

	sub, _ := ss.GetByPolarID("sub_1")
	if sub.Status != "canceled" {
		t.Errorf("status = %q, want %q", sub.Status, "canceled")
	}
	if sub.CancellationReason == nil || *sub.CancellationReason != "too_expensive" {
		t.Errorf("cancellation reason = %v, want too_expensive", sub.CancellationReason)
	}
	if !sub.CancelAtPeriodEnd {
		t.Error("expected cancel_at_period_end = true")
	}
}

func TestSubscriptionGetByPolarIDNotFound(t *testing.T) {
	ss := setupSubscriptionTestDB(t)

	sub, err := ss.GetByPolarID("sub_missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub != nil {
		t.Error("expected nil for nonexistent polar id")
	}
}

func TestSubscriptionListByCustomerID(t *testing.T) {
	ss := setupSubscriptionTestDB(t)

	ss.Upsert(testSubscription("sub_1"))
	ss.Upsert(testSubscription("sub_2"))
	other := testSubscription("sub_3")
	other.CustomerID = "cus_2"
	ss.Upsert(other)

	subs, err := ss.ListByCustomerID("cus_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("len = %d, want 2", len(subs))
	}
}
