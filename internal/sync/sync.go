// Package sync reconciles local purchase records with Polar, the system of
// record. It is the authoritative pull path: safe to run repeatedly and
// concurrently because every write is an upsert keyed by vendor ID.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/wrenfield/polarkit/internal/metrics"
	"github.com/wrenfield/polarkit/internal/model"
	"github.com/wrenfield/polarkit/internal/polar"
	"github.com/wrenfield/polarkit/internal/store"
)

type Service struct {
	polar     *polar.Client
	users     *store.UserStore
	subs      *store.SubscriptionStore
	products  *store.ProductStore
	collector *metrics.Collector
	logger    *slog.Logger
}

func NewService(
	pc *polar.Client,
	us *store.UserStore,
	ss *store.SubscriptionStore,
	ps *store.ProductStore,
	mc *metrics.Collector,
	logger *slog.Logger,
) *Service {
	return &Service{
		polar:     pc,
		users:     us,
		subs:      ss,
		products:  ps,
		collector: mc,
		logger:    logger,
	}
}

// SyncSubscriptions pulls the user's subscriptions from Polar and upserts
// each into the local store. A user without an email, or without a Polar
// customer, has never transacted: both are normal no-op terminal states.
//
// Individual upserts are retried with capped backoff and skipped on
// persistent failure so one bad record cannot strand the rest of a page.
// Page failures after the first are likewise logged and skipped; only a
// first-page failure, which prevents listing at all, aborts the run with a
// generic error.
func (s *Service) SyncSubscriptions(ctx context.Context, user *model.User) error {
	if user == nil {
		return nil
	}
	log := s.logger.With("run", uuid.NewString()[:8], "user_id", user.ID)

	if user.Email == "" {
		log.Warn("user has no email address, skipping sync")
		return nil
	}

	customerID, err := s.polar.FindCustomerIDByEmail(ctx, user.Email)
	if err != nil {
		log.Error("resolve polar customer", "error", err)
		s.collector.RecordSyncRun("subscriptions", metrics.OutcomeError)
		return fmt.Errorf("sync subscriptions: %w", err)
	}
	if customerID == "" {
		// No customer in Polar, so no subscriptions.
		return nil
	}

	// Remember the mapping so the read path can find these records.
	if user.PolarCustomerID == nil || *user.PolarCustomerID != customerID {
		if err := s.users.UpdatePolarCustomerID(user.ID, customerID); err != nil {
			log.Error("store polar customer id", "error", err)
		}
	}

	maxPage := 1
	skippedPages := 0
	for page := 1; page <= maxPage; page++ {
		items, vendorMaxPage, err := s.polar.ListSubscriptionsPage(ctx, customerID, page)
		if err != nil {
			if page == 1 {
				// Listing is unavailable entirely.
				log.Error("list subscriptions", "error", err)
				s.collector.RecordSyncRun("subscriptions", metrics.OutcomeError)
				return fmt.Errorf("sync subscriptions: %w", err)
			}
			// A bad page leaves its records stale; the rest of the run
			// proceeds against the last known page count and the next
			// sync picks the page up again.
			log.Error("list subscriptions page", "page", page, "error", err)
			skippedPages++
			continue
		}
		maxPage = vendorMaxPage

		for _, sub := range items {
			if err := s.ReconcileSubscription(ctx, sub); err != nil {
				// Leave this record stale rather than aborting the run;
				// the next sync will pick it up again.
				log.Error("upsert subscription", "subscription_id", sub.ID, "error", err)
				continue
			}
			s.collector.RecordSubscriptionUpserted()
		}
	}

	if skippedPages > 0 {
		log.Warn("sync finished with skipped pages", "skipped", skippedPages)
	}
	s.collector.RecordSyncRun("subscriptions", metrics.OutcomeOK)
	return nil
}

// ReconcileSubscription upserts one vendor subscription into the local
// store, retrying transient store failures with capped backoff.
func (s *Service) ReconcileSubscription(ctx context.Context, sub polar.Subscription) error {
	record := convertSubscription(sub)
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := s.subs.Upsert(record); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// SyncProducts replaces the local catalog cache with the current Polar
// catalog. Idempotent.
func (s *Service) SyncProducts(ctx context.Context) error {
	log := s.logger.With("run", uuid.NewString()[:8])

	// Any page failure aborts here: the catalog is replaced wholesale, and
	// swapping in a partial snapshot would hide purchases behind the orphan
	// filter.
	var catalog []*model.Product
	maxPage := 1
	for page := 1; page <= maxPage; page++ {
		items, vendorMaxPage, err := s.polar.ListProductsPage(ctx, page)
		if err != nil {
			log.Error("list products page", "page", page, "error", err)
			s.collector.RecordSyncRun("products", metrics.OutcomeError)
			return fmt.Errorf("sync products: %w", err)
		}
		maxPage = vendorMaxPage
		for _, p := range items {
			catalog = append(catalog, convertProduct(p))
		}
	}

	if err := s.products.ReplaceAll(catalog); err != nil {
		log.Error("replace catalog", "error", err)
		s.collector.RecordSyncRun("products", metrics.OutcomeError)
		return fmt.Errorf("sync products: %w", err)
	}

	s.collector.SetCatalogSize(len(catalog))
	s.collector.RecordSyncRun("products", metrics.OutcomeOK)
	log.Info("catalog synced", "products", len(catalog))
	return nil
}

// ReconcileProduct refreshes a single catalog entry. Used by the product
// lifecycle webhook.
func (s *Service) ReconcileProduct(ctx context.Context, p polar.Product) error {
	if err := s.products.Upsert(convertProduct(p)); err != nil {
		return fmt.Errorf("reconcile product %s: %w", p.ID, err)
	}
	return nil
}

// convertSubscription normalizes a vendor subscription for local storage.
// Timestamps become ISO-8601 strings at this boundary.
func convertSubscription(sub polar.Subscription) *model.Subscription {
	return &model.Subscription{
		PolarID:             sub.ID,
		CustomerID:          sub.CustomerID,
		ProductID:           sub.ProductID,
		Status:              sub.Status,
		Amount:              sub.Amount,
		Currency:            sub.Currency,
		RecurringInterval:   sub.RecurringInterval,
		CurrentPeriodStart:  isoString(sub.CurrentPeriodStart),
		CurrentPeriodEnd:    isoPtr(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:   sub.CancelAtPeriodEnd,
		CancellationReason:  sub.CancellationReason,
		CancellationComment: sub.CancellationComment,
		StartedAt:           isoPtr(sub.StartedAt),
		EndedAt:             isoPtr(sub.EndedAt),
		CheckoutID:          sub.CheckoutID,
		Metadata:            sub.Metadata,
		VendorCreatedAt:     isoString(sub.CreatedAt),
		VendorModified:      isoPtr(sub.ModifiedAt),
	}
}

func convertProduct(p polar.Product) *model.Product {
	product := &model.Product{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		IsRecurring:       p.IsRecurring,
		RecurringInterval: p.RecurringInterval,
	}
	for _, price := range p.Prices {
		product.Prices = append(product.Prices, model.Price{
			ID:                price.ID,
			Amount:            price.PriceAmount,
			Currency:          price.PriceCurrency,
			RecurringInterval: price.RecurringInterval,
		})
	}
	return product
}

func isoString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoString(*t)
	return &s
}
