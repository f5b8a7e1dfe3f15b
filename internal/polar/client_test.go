package polar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// Signature verification has a timestamp tolerance, so signed test events
// use the current time.
var signedAt = time.Now()

func testNow() time.Time { return signedAt }

func testTimestamp() string { return strconv.FormatInt(signedAt.Unix(), 10) }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		Config{AccessToken: "polar_oat_test", Environment: "sandbox"},
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
}

func writePage[T any](w http.ResponseWriter, items []T, maxPage int) {
	resp := map[string]any{
		"items": items,
		"pagination": map[string]any{
			"total_count": len(items),
			"max_page":    maxPage,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func TestFindCustomerIDByEmailFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer polar_oat_test" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Query().Get("email") != "alice@example.com" {
			t.Errorf("email query = %q", r.URL.Query().Get("email"))
		}
		writePage(w, []Customer{{ID: "cus_1", Email: "alice@example.com"}}, 1)
	}))

	id, err := client.FindCustomerIDByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	if id != "cus_1" {
		t.Errorf("id = %q, want cus_1", id)
	}
}

func TestFindCustomerIDByEmailNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []Customer{}, 1)
	}))

	id, err := client.FindCustomerIDByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
}

func TestListSubscriptionsPagePagination(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			writePage(w, []Subscription{{ID: "sub_1", CustomerID: "cus_1"}}, 2)
		case "2":
			writePage(w, []Subscription{{ID: "sub_2", CustomerID: "cus_1"}}, 2)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))

	subs, maxPage, err := client.ListSubscriptionsPage(context.Background(), "cus_1", 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != "sub_1" {
		t.Errorf("page 1 subs = %+v", subs)
	}
	if maxPage != 2 {
		t.Fatalf("page 1 maxPage = %d, want 2", maxPage)
	}

	subs, maxPage, err = client.ListSubscriptionsPage(context.Background(), "cus_1", 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != "sub_2" {
		t.Errorf("page 2 subs = %+v", subs)
	}
	if maxPage != 2 {
		t.Errorf("page 2 maxPage = %d, want 2", maxPage)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
	}))

	_, _, err := client.ListSubscriptionsPage(context.Background(), "cus_1", 1)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestValidateEventRoundTrip(t *testing.T) {
	secret := "test-webhook-secret"
	payload := []byte(`{"type": "order.created", "data": {"id": "order_1"}}`)

	sig, err := SignEvent(secret, "msg_1", testNow(), payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	header := http.Header{}
	header.Set("webhook-id", "msg_1")
	header.Set("webhook-timestamp", testTimestamp())
	header.Set("webhook-signature", sig)

	ev, err := ValidateEvent(payload, header, secret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ev.Type != "order.created" {
		t.Errorf("type = %q, want order.created", ev.Type)
	}
}

func TestValidateEventRejectsTamperedPayload(t *testing.T) {
	secret := "test-webhook-secret"
	payload := []byte(`{"type": "order.created", "data": {"id": "order_1"}}`)

	sig, err := SignEvent(secret, "msg_1", testNow(), payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	header := http.Header{}
	header.Set("webhook-id", "msg_1")
	header.Set("webhook-timestamp", testTimestamp())
	header.Set("webhook-signature", sig)

	tampered := []byte(`{"type": "order.created", "data": {"id": "order_evil"}}`)
	if _, err := ValidateEvent(tampered, header, secret); err == nil {
		t.Fatal("expected verification failure for tampered payload")
	}
}
