package handler

import (
	"log/slog"
	"net/http"

	"github.com/wrenfield/polarkit/internal/metrics"
	"github.com/wrenfield/polarkit/internal/model"
	"github.com/wrenfield/polarkit/internal/purchases"
	"github.com/wrenfield/polarkit/internal/store"
	syncsvc "github.com/wrenfield/polarkit/internal/sync"
)

type PurchasesHandler struct {
	users       *store.UserStore
	purchases   *purchases.Service
	syncService *syncsvc.Service
	collector   *metrics.Collector
	logger      *slog.Logger
}

func NewPurchasesHandler(
	us *store.UserStore,
	ps *purchases.Service,
	ss *syncsvc.Service,
	mc *metrics.Collector,
	logger *slog.Logger,
) *PurchasesHandler {
	return &PurchasesHandler{
		users:       us,
		purchases:   ps,
		syncService: ss,
		collector:   mc,
		logger:      logger,
	}
}

// HandleList returns the caller's purchases. An anonymous caller gets an
// empty list, not an error, matching the composed read contract.
func (h *PurchasesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.logger.Error("load current user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load purchases")
		return
	}

	list, err := h.purchases.List(user)
	if err != nil {
		h.logger.Error("list purchases", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load purchases")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": list})
}

// HandleSync pulls the caller's subscriptions from Polar on demand.
func (h *PurchasesHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.logger.Error("load current user", "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.syncService.SyncSubscriptions(r.Context(), user); err != nil {
		// Details already logged inside the sync run; the caller gets a
		// generic message.
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleCatalogSync refreshes the local product catalog from Polar.
func (h *PurchasesHandler) HandleCatalogSync(w http.ResponseWriter, r *http.Request) {
	if err := h.syncService.SyncProducts(r.Context()); err != nil {
		h.logger.Error("sync catalog", "error", err)
		writeError(w, http.StatusBadGateway, "catalog sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PurchasesHandler) currentUser(r *http.Request) (*model.User, error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return nil, nil
	}
	return h.users.GetByID(userID)
}
