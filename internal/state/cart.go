package state

import (
	"context"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// CartAPI is the part of the gateway the cart store uses.
type CartAPI interface {
	Get(ctx context.Context) (*models.Cart, error)
	Add(ctx context.Context, productID int64, quantity int) error
	Update(ctx context.Context, itemID int64, quantity int) error
	Remove(ctx context.Context, itemID int64) error
	Clear(ctx context.Context) error
}

// CartState is a snapshot of the cart store.
type CartState struct {
	Cart    *models.Cart
	Loading bool
	Err     string
}

// CartStore mirrors the server cart. Every mutation is followed by a full
// re-fetch and the cart is only ever replaced by what the server returned.
type CartStore struct {
	core
	api  CartAPI
	cart *models.Cart
}

func NewCartStore(api CartAPI, m *metrics.AppMetrics) *CartStore {
	s := &CartStore{api: api}
	s.init("cart", m)
	return s
}

// Snapshot returns a copy of the current state.
func (s *CartStore) Snapshot() CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartState{Cart: s.cart.Clone(), Loading: s.loading > 0, Err: s.err}
}

// Fetch replaces the cart with the server's.
func (s *CartStore) Fetch(ctx context.Context) (*models.Cart, error) {
	cart, err := read(ctx, &s.core, "fetch", s.api.Get, func(cart *models.Cart) {
		s.cart = cart
	})
	return cart.Clone(), err
}

// Add puts quantity of a product in the cart.
func (s *CartStore) Add(ctx context.Context, productID int64, quantity int) error {
	return s.mutateAndFetch(ctx, func(ctx context.Context) error {
		return s.api.Add(ctx, productID, quantity)
	})
}

// Update sets the absolute quantity of an item. Zero removes the item.
func (s *CartStore) Update(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 0 {
		return errors.NotValidf("quantity %d", quantity)
	}
	if quantity == 0 {
		return s.Remove(ctx, itemID)
	}
	return s.mutateAndFetch(ctx, func(ctx context.Context) error {
		return s.api.Update(ctx, itemID, quantity)
	})
}

func (s *CartStore) Remove(ctx context.Context, itemID int64) error {
	return s.mutateAndFetch(ctx, func(ctx context.Context) error {
		return s.api.Remove(ctx, itemID)
	})
}

func (s *CartStore) Clear(ctx context.Context) error {
	return s.mutateAndFetch(ctx, s.api.Clear)
}

// Reset forgets the cart, e.g. after logout. In-flight fetches are dropped.
func (s *CartStore) Reset() {
	s.mu.Lock()
	s.cart = nil
	s.err = ""
	s.supersede("fetch")
	s.mu.Unlock()
	s.notify()
}

func (s *CartStore) mutateAndFetch(ctx context.Context, call func(context.Context) error) error {
	if err := s.mutate(ctx, call); err != nil {
		return errors.Trace(err)
	}
	_, err := s.Fetch(ctx)
	return errors.Trace(resync(err))
}
