package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wrenfield/polarkit/internal/model"
	"github.com/wrenfield/polarkit/internal/polar"
	"github.com/wrenfield/polarkit/internal/store"
)

type CheckoutHandler struct {
	polar  *polar.Client
	users  *store.UserStore
	logger *slog.Logger
}

func NewCheckoutHandler(pc *polar.Client, us *store.UserStore, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{polar: pc, users: us, logger: logger}
}

// HandleCheckout creates a Polar checkout session for a product and returns
// the redirect URL. Works for anonymous callers too; a logged-in caller's
// email is attached so the resulting order resolves back to them.
func (h *CheckoutHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	email := ""
	if userID, ok := UserIDFromContext(r.Context()); ok {
		user, err := h.users.GetByID(userID)
		if err != nil {
			h.logger.Error("load current user", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create checkout")
			return
		}
		if user != nil {
			email = user.Email
		}
	}

	url, err := h.polar.CreateCheckout(r.Context(), req.ProductID, email)
	if err != nil {
		h.logger.Error("create checkout", "product_id", req.ProductID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to create checkout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// HandlePortal hands the caller a customer portal URL, creating the Polar
// customer first if this user has never had one.
func (h *CheckoutHandler) HandlePortal(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		h.logger.Error("load current user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to open portal")
		return
	}

	customerID, err := h.ensureCustomer(r, user)
	if err != nil {
		h.logger.Error("ensure polar customer", "user_id", user.ID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to open portal")
		return
	}

	portalURL, err := h.polar.CreateCustomerSession(r.Context(), customerID)
	if err != nil {
		h.logger.Error("create customer session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to open portal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": portalURL})
}

// ensureCustomer returns the user's Polar customer ID, creating the
// customer if needed. Creation can race a checkout that already made one;
// on a create failure the existing customer is looked up by email before
// giving up. Whatever ID is resolved gets persisted for next time.
func (h *CheckoutHandler) ensureCustomer(r *http.Request, user *model.User) (string, error) {
	if user.PolarCustomerID != nil && *user.PolarCustomerID != "" {
		return *user.PolarCustomerID, nil
	}

	customerID, err := h.polar.CreateCustomer(r.Context(), user.Email, map[string]any{
		"user_id": user.ID,
	})
	if err != nil {
		h.logger.Warn("create customer failed, trying lookup", "user_id", user.ID, "error", err)
		customerID, err = h.polar.FindCustomerIDByEmail(r.Context(), user.Email)
		if err != nil {
			return "", err
		}
		if customerID == "" {
			return "", fmt.Errorf("no polar customer for %s", user.Email)
		}
	}

	if err := h.users.UpdatePolarCustomerID(user.ID, customerID); err != nil {
		h.logger.Error("persist customer id", "user_id", user.ID, "error", err)
	}
	return customerID, nil
}
