// Package purchases composes local orders, local subscriptions, and the
// cached product catalog into one read-side list.
package purchases

import (
	"fmt"

	"github.com/wrenfield/polarkit/internal/model"
	"github.com/wrenfield/polarkit/internal/store"
)

type Service struct {
	orders   *store.OrderStore
	subs     *store.SubscriptionStore
	products *store.ProductStore
}

func NewService(os *store.OrderStore, ss *store.SubscriptionStore, ps *store.ProductStore) *Service {
	return &Service{orders: os, subs: ss, products: ps}
}

// List returns the user's purchases: subscriptions first, then orders,
// each joined with its product. Purchases whose product is no longer in
// the catalog are dropped. A nil user yields an empty list, never an
// error. No further sorting is applied; callers filter and sort.
func (s *Service) List(user *model.User) ([]model.Purchase, error) {
	purchases := []model.Purchase{}
	if user == nil {
		return purchases, nil
	}

	var subs []*model.Subscription
	if user.PolarCustomerID != nil {
		var err error
		subs, err = s.subs.ListByCustomerID(*user.PolarCustomerID)
		if err != nil {
			return nil, fmt.Errorf("list purchases: %w", err)
		}
	}

	orders, err := s.orders.ListByUserID(user.ID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	catalog, err := s.products.List()
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	byID := make(map[string]*model.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	for _, sub := range subs {
		product, ok := byID[sub.ProductID]
		if !ok {
			continue
		}
		purchases = append(purchases, model.Purchase{
			Kind:         model.PurchaseKindSubscription,
			Subscription: sub,
			Product:      product,
		})
	}
	for _, order := range orders {
		product, ok := byID[order.ProductID]
		if !ok {
			continue
		}
		purchases = append(purchases, model.Purchase{
			Kind:    model.PurchaseKindOrder,
			Order:   order,
			Product: product,
		})
	}
	return purchases, nil
}
