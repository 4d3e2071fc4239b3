package services

import (
	"context"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// CartService handles cart-related operations
type CartService struct {
	store *Store
}

// NewCartService creates a new cart service
func NewCartService(store *Store) *CartService {
	return &CartService{store: store}
}

// cartFor returns the cart of a user, creating it. Callers hold the lock.
func (s *CartService) cartFor(userID int64) *cartRecord {
	cart, ok := s.store.carts[userID]
	if !ok {
		now := s.store.now()
		cart = &cartRecord{id: s.store.id(), createdAt: now, updatedAt: now}
		s.store.carts[userID] = cart
	}
	return cart
}

// GetCart returns the cart of a user with server-computed totals.
func (s *CartService) GetCart(userID int64) *models.Cart {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.render(s.cartFor(userID))
}

// render builds the wire form of a cart. Callers hold the lock.
func (s *CartService) render(cart *cartRecord) *models.Cart {
	out := &models.Cart{
		ID:         cart.id,
		Items:      []models.CartItem{},
		TotalPrice: decimal.Zero,
		CreatedAt:  cart.createdAt,
		UpdatedAt:  cart.updatedAt,
	}
	for _, line := range cart.lines {
		p, ok := s.store.products[line.productID]
		if !ok {
			continue
		}
		total := p.Price.Mul(decimal.NewFromInt(int64(line.quantity)))
		out.Items = append(out.Items, models.CartItem{
			ID:         line.id,
			Product:    *p,
			Quantity:   line.quantity,
			TotalPrice: total,
			CreatedAt:  line.createdAt,
		})
		out.TotalPrice = out.TotalPrice.Add(total)
		out.TotalItems += line.quantity
	}
	return out
}

// AddToCart adds quantity of a product, merging with an existing line.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < 1 {
		return errors.NotValidf("quantity %d", quantity)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	p, ok := s.store.products[productID]
	if !ok || !p.IsActive {
		return errors.NotFoundf("product %d", productID)
	}
	cart := s.cartFor(userID)
	for i := range cart.lines {
		line := &cart.lines[i]
		if line.productID != productID {
			continue
		}
		if line.quantity+quantity > p.Stock {
			return errors.NotValidf("quantity %d, only %d in stock", line.quantity+quantity, p.Stock)
		}
		line.quantity += quantity
		cart.updatedAt = s.store.now()
		s.recordItems(ctx, cart)
		return nil
	}
	if quantity > p.Stock {
		return errors.NotValidf("quantity %d, only %d in stock", quantity, p.Stock)
	}
	cart.lines = append(cart.lines, cartLine{
		id:        s.store.id(),
		productID: productID,
		quantity:  quantity,
		createdAt: s.store.now(),
	})
	cart.updatedAt = s.store.now()
	s.recordItems(ctx, cart)
	return nil
}

// UpdateCartItem sets the absolute quantity of a line.
func (s *CartService) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) error {
	if quantity < 1 {
		return errors.NotValidf("quantity %d", quantity)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	cart := s.cartFor(userID)
	for i := range cart.lines {
		line := &cart.lines[i]
		if line.id != itemID {
			continue
		}
		if p, ok := s.store.products[line.productID]; ok && quantity > p.Stock {
			return errors.NotValidf("quantity %d, only %d in stock", quantity, p.Stock)
		}
		line.quantity = quantity
		cart.updatedAt = s.store.now()
		s.recordItems(ctx, cart)
		return nil
	}
	return errors.NotFoundf("cart item %d", itemID)
}

// RemoveFromCart drops a line.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	cart := s.cartFor(userID)
	for i, line := range cart.lines {
		if line.id == itemID {
			cart.lines = append(cart.lines[:i], cart.lines[i+1:]...)
			cart.updatedAt = s.store.now()
			s.recordItems(ctx, cart)
			return nil
		}
	}
	return errors.NotFoundf("cart item %d", itemID)
}

// ClearCart empties the cart of a user.
func (s *CartService) ClearCart(ctx context.Context, userID int64) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	cart := s.cartFor(userID)
	cart.lines = nil
	cart.updatedAt = s.store.now()
	s.recordItems(ctx, cart)
}

func (s *CartService) recordItems(ctx context.Context, cart *cartRecord) {
	if s.store.metrics == nil {
		return
	}
	var n int64
	for _, line := range cart.lines {
		n += int64(line.quantity)
	}
	s.store.metrics.CartItemsCount.Record(ctx, n, metric.WithAttributes(s.store.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("cart_id", cart.id),
	})...))
}
