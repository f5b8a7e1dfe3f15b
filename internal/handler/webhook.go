package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/wrenfield/polarkit/internal/email"
	"github.com/wrenfield/polarkit/internal/metrics"
	"github.com/wrenfield/polarkit/internal/model"
	"github.com/wrenfield/polarkit/internal/polar"
	"github.com/wrenfield/polarkit/internal/store"
	syncsvc "github.com/wrenfield/polarkit/internal/sync"
)

// Orders arriving by webhook are recorded as paid; that is the only event
// type this route handles.
const orderPaidStatus = "paid"

const maxWebhookBody = 65536

type WebhookHandler struct {
	cfg         polar.Config
	userStore   *store.UserStore
	orderStore  *store.OrderStore
	products    *store.ProductStore
	syncService *syncsvc.Service
	emailClient *email.Client
	collector   *metrics.Collector
	logger      *slog.Logger
}

func NewWebhookHandler(
	cfg polar.Config,
	us *store.UserStore,
	os *store.OrderStore,
	ps *store.ProductStore,
	ss *syncsvc.Service,
	ec *email.Client,
	mc *metrics.Collector,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		cfg:         cfg,
		userStore:   us,
		orderStore:  os,
		products:    ps,
		syncService: ss,
		emailClient: ec,
		collector:   mc,
		logger:      logger,
	}
}

// HandleOrderEvents ingests the custom order webhook. Only order.created is
// processed; every other verified event type is acknowledged and ignored so
// Polar does not retry it.
func (h *WebhookHandler) HandleOrderEvents(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.verify(w, r, h.cfg.OrderWebhookSecret)
	if !ok {
		return
	}

	if ev.Type != polar.EventOrderCreated {
		h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeIgnored)
		w.WriteHeader(http.StatusOK)
		return
	}

	order, err := polar.ParseOrderCreated(ev.Data)
	if err != nil {
		h.logger.Error("parse order payload", "error", err)
		h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, "failed to process order")
		return
	}

	var user *model.User
	if order.Email != "" {
		user, err = h.userStore.GetByEmail(order.Email)
		if err != nil {
			h.logger.Error("resolve user by email", "order_id", order.ID, "error", err)
			h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeError)
			writeError(w, http.StatusInternalServerError, "failed to process order")
			return
		}
	}
	if user == nil {
		// No local account for the address. The order is dropped; there is
		// no unclaimed-order store or retry queue in this version.
		h.logger.Warn("order received but no user found, skipping",
			"order_id", order.ID, "email", order.Email)
		h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeSkipped)
		w.WriteHeader(http.StatusOK)
		return
	}

	record := &model.Order{
		PolarID:         order.ID,
		UserID:          user.ID,
		ProductID:       order.ProductID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		Status:          orderPaidStatus,
		Metadata:        order.Metadata,
		VendorCreatedAt: order.CreatedAt,
	}
	if order.PriceID != "" {
		record.PriceID = &order.PriceID
	}
	if order.CheckoutID != "" {
		record.CheckoutID = &order.CheckoutID
	}
	if order.ModifiedAt != "" {
		record.VendorModified = &order.ModifiedAt
	}

	if _, err := h.orderStore.Upsert(record); err != nil {
		h.logger.Error("upsert order", "order_id", order.ID, "error", err)
		h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, "failed to process order")
		return
	}

	h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeProcessed)
	h.collector.RecordOrderUpserted()
	h.logger.Info("order ingested", "order_id", order.ID, "user_id", user.ID)

	h.sendReceipt(user.Email, record)

	w.WriteHeader(http.StatusOK)
}

// HandleSubscriptionEvents is the standard billing route: it mirrors
// subscription and product lifecycle events into the local stores and logs
// cancellation context.
func (h *WebhookHandler) HandleSubscriptionEvents(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.verify(w, r, h.cfg.WebhookSecret)
	if !ok {
		return
	}

	switch ev.Type {
	case polar.EventSubscriptionCreated, polar.EventSubscriptionUpdated:
		var sub polar.Subscription
		if err := json.Unmarshal(ev.Data, &sub); err != nil {
			h.logger.Error("decode subscription event", "error", err)
			h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeError)
			writeError(w, http.StatusInternalServerError, "failed to process event")
			return
		}
		if sub.CancellationReason != nil {
			h.logger.Info("customer cancelled", "subscription_id", sub.ID,
				"reason", *sub.CancellationReason)
		}
		if err := h.syncService.ReconcileSubscription(r.Context(), sub); err != nil {
			h.logger.Error("reconcile subscription event", "subscription_id", sub.ID, "error", err)
			h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeError)
			writeError(w, http.StatusInternalServerError, "failed to process event")
			return
		}
		h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeProcessed)

	case polar.EventProductCreated, polar.EventProductUpdated:
		var product polar.Product
		if err := json.Unmarshal(ev.Data, &product); err != nil {
			h.logger.Error("decode product event", "error", err)
			h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeError)
			writeError(w, http.StatusInternalServerError, "failed to process event")
			return
		}
		if err := h.syncService.ReconcileProduct(r.Context(), product); err != nil {
			h.logger.Error("reconcile product event", "product_id", product.ID, "error", err)
			h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeError)
			writeError(w, http.StatusInternalServerError, "failed to process event")
			return
		}
		h.logger.Info("product event applied", "product_id", product.ID, "name", product.Name)
		h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeProcessed)

	default:
		h.collector.RecordWebhookEvent(ev.Type, metrics.OutcomeIgnored)
	}

	w.WriteHeader(http.StatusOK)
}

// verify reads and authenticates a delivery. A missing secret is an
// operator misconfiguration (500); a bad signature is a client error (400).
// In both cases nothing is written to any store.
func (h *WebhookHandler) verify(w http.ResponseWriter, r *http.Request, secret string) (*polar.Event, bool) {
	if secret == "" {
		h.logger.Error("webhook secret is not configured")
		writeError(w, http.StatusInternalServerError, "missing webhook secret")
		return nil, false
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return nil, false
	}

	ev, err := polar.ValidateEvent(payload, r.Header, secret)
	if err != nil {
		h.logger.Warn("webhook verification failed", "error", err)
		h.collector.RecordWebhookEvent("unknown", metrics.OutcomeRejected)
		writeError(w, http.StatusBadRequest, "webhook verification failed")
		return nil, false
	}
	return ev, true
}

// sendReceipt is best effort; a mail failure never fails ingestion.
func (h *WebhookHandler) sendReceipt(toEmail string, order *model.Order) {
	if h.emailClient == nil || !h.emailClient.Configured() {
		return
	}
	productName := order.ProductID
	if p, err := h.products.GetByID(order.ProductID); err == nil && p != nil {
		productName = p.Name
	}
	if err := h.emailClient.SendOrderReceipt(toEmail, productName, order.Amount, order.Currency); err != nil {
		h.logger.Error("send order receipt", "order_id", order.PolarID, "error", err)
	}
}
