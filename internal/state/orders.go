package state

import (
	"context"
	"io"
	"slices"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// OrderAPI is the part of the gateway the order store uses.
type OrderAPI interface {
	List(ctx context.Context) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	Create(ctx context.Context, req models.OrderCreate) (*models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	Cancel(ctx context.Context, id string) error
	Receipt(ctx context.Context, id string) (io.ReadCloser, string, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

// OrderState is a snapshot of the order store.
type OrderState struct {
	// Orders are the logged-in user's orders, newest first.
	Orders []models.Order
	// AllOrders is the admin list.
	AllOrders []models.Order
	Current   *models.Order
	Loading   bool
	Err       string
}

// OrderStore caches the order history, the admin order list and the order
// being viewed.
type OrderStore struct {
	core
	api   OrderAPI
	state OrderState
}

func NewOrderStore(api OrderAPI, m *metrics.AppMetrics) *OrderStore {
	s := &OrderStore{api: api}
	s.init("orders", m)
	return s
}

// Snapshot returns a copy of the current state.
func (s *OrderStore) Snapshot() OrderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := OrderState{
		Orders:    slices.Clone(s.state.Orders),
		AllOrders: slices.Clone(s.state.AllOrders),
		Loading:   s.loading > 0,
		Err:       s.err,
	}
	if s.state.Current != nil {
		o := *s.state.Current
		out.Current = &o
	}
	return out
}

// List loads the logged-in user's orders.
func (s *OrderStore) List(ctx context.Context) ([]models.Order, error) {
	return read(ctx, &s.core, "list", s.api.List, func(orders []models.Order) {
		s.state.Orders = orders
	})
}

// ListAll loads every order. Admin only.
func (s *OrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return read(ctx, &s.core, "all", s.api.ListAll, func(orders []models.Order) {
		s.state.AllOrders = orders
	})
}

// Get loads the order being viewed.
func (s *OrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	return read(ctx, &s.core, "current", func(ctx context.Context) (*models.Order, error) {
		return s.api.Get(ctx, id)
	}, func(o *models.Order) {
		s.state.Current = o
	})
}

// ClearCurrent forgets the order being viewed.
func (s *OrderStore) ClearCurrent() {
	s.mu.Lock()
	s.state.Current = nil
	s.supersede("current")
	s.mu.Unlock()
	s.notify()
}

// Create places an order. The new order is prepended to the history and
// becomes the current order; reads in flight are dropped.
func (s *OrderStore) Create(ctx context.Context, req models.OrderCreate) (*models.Order, error) {
	var order *models.Order
	err := s.mutate(ctx, func(ctx context.Context) (err error) {
		order, err = s.api.Create(ctx, req)
		return err
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	s.mu.Lock()
	s.state.Orders = append([]models.Order{*order}, s.state.Orders...)
	current := *order
	s.state.Current = &current
	s.supersede("list", "current")
	s.mu.Unlock()
	s.notify()
	return order, nil
}

// Cancel asks the backend to cancel an order, then re-fetches the history
// and, if it is being viewed, the order itself.
func (s *OrderStore) Cancel(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(ctx context.Context) error {
		return s.api.Cancel(ctx, id)
	})
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := s.List(ctx); resync(err) != nil {
		return errors.Trace(err)
	}
	s.mu.Lock()
	viewing := s.state.Current != nil && s.state.Current.ID == id
	s.mu.Unlock()
	if viewing {
		_, err := s.Get(ctx, id)
		return errors.Trace(resync(err))
	}
	return nil
}

// UpdateStatus moves an order to status, then re-fetches the admin list.
// Any status may follow any other; only membership of the enum is checked.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if !status.Valid() {
		return errors.NotValidf("order status %q", status)
	}
	err := s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.api.UpdateStatus(ctx, id, status)
		return err
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = s.ListAll(ctx)
	return errors.Trace(resync(err))
}

// Receipt opens the receipt of an order. Nothing is stored; a failure is
// recorded as the store error.
func (s *OrderStore) Receipt(ctx context.Context, id string) (io.ReadCloser, string, error) {
	var (
		body        io.ReadCloser
		contentType string
	)
	err := s.mutate(ctx, func(ctx context.Context) (err error) {
		body, contentType, err = s.api.Receipt(ctx, id)
		return err
	})
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	return body, contentType, nil
}

// Reset forgets everything, e.g. after logout.
func (s *OrderStore) Reset() {
	s.mu.Lock()
	s.state = OrderState{}
	s.err = ""
	s.supersede("list", "all", "current")
	s.mu.Unlock()
	s.notify()
}
