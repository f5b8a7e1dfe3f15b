package store

import (
	"testing"

	"github.com/wrenfield/polarkit/internal/database"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCreateAndGetByEmail(t *testing.T) {
	us := setupUserTestDB(t)

	created, err := us.Create("alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := us.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != created.ID {
		t.Errorf("id = %d, want %d", u.ID, created.ID)
	}
	if u.PolarCustomerID != nil {
		t.Errorf("customer id = %v, want nil", u.PolarCustomerID)
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserUpdatePolarCustomerID(t *testing.T) {
	us := setupUserTestDB(t)

	created, _ := us.Create("alice@example.com", "Alice")
	if err := us.UpdatePolarCustomerID(created.ID, "cus_42"); err != nil {
		t.Fatalf("update customer id: %v", err)
	}

	u, _ := us.GetByID(created.ID)
	if u.PolarCustomerID == nil || *u.PolarCustomerID != "cus_42" {
		t.Errorf("customer id = %v, want cus_42", u.PolarCustomerID)
	}
}
