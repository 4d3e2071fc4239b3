package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// OrderService handles order-related operations
type OrderService struct {
	store *Store
}

// NewOrderService creates a new order service
func NewOrderService(store *Store) *OrderService {
	return &OrderService{store: store}
}

// CreateOrder turns the cart of a user into an order and empties the cart.
func (s *OrderService) CreateOrder(ctx context.Context, user models.User, req models.OrderCreate) (*models.Order, error) {
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, errors.NotValidf("empty shipping address")
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	cart, ok := s.store.carts[user.ID]
	if !ok || len(cart.lines) == 0 {
		return nil, errors.NotValidf("empty cart")
	}

	now := s.store.now()
	order := models.Order{
		ID:              "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10]),
		UserEmail:       user.Email,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		TotalAmount:     decimal.Zero,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.PostalCode != "" {
		order.ShippingAddress += ", " + strings.TrimSpace(req.PostalCode)
	}

	for _, line := range cart.lines {
		p, ok := s.store.products[line.productID]
		if !ok {
			continue
		}
		if line.quantity > p.Stock {
			return nil, errors.NotValidf("quantity of %q, only %d in stock", p.Name, p.Stock)
		}
		total := p.Price.Mul(decimal.NewFromInt(int64(line.quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ID:         s.store.id(),
			Product:    *p,
			Quantity:   line.quantity,
			Price:      p.Price,
			TotalPrice: total,
		})
		order.TotalAmount = order.TotalAmount.Add(total)
	}
	if len(order.Items) == 0 {
		return nil, errors.NotValidf("empty cart")
	}

	switch req.PaymentMethod {
	case models.PaymentMethodCard:
		intent, ok := s.store.intent(req.PaymentIntentID)
		if !ok {
			return nil, errors.NotValidf("payment intent %q", req.PaymentIntentID)
		}
		if cents := order.TotalAmount.Shift(2).Round(0).IntPart(); intent.amount != cents {
			return nil, errors.NotValidf("payment intent amount %d for order total %d", intent.amount, cents)
		}
		delete(s.store.intents, intent.id)
		order.PaymentStatus = models.PaymentCompleted
	case models.PaymentMethodManual:
	default:
		return nil, errors.NotValidf("payment method %q", req.PaymentMethod)
	}

	for _, item := range order.Items {
		p := s.store.products[item.Product.ID]
		p.Stock -= item.Quantity
		p.IsInStock = p.Stock > 0
	}
	cart.lines = nil
	cart.updatedAt = now
	s.store.orders = append(s.store.orders, &orderRecord{order: order, userID: user.ID})

	if m := s.store.metrics; m != nil {
		m.RecordOrderCreated(ctx, order.PaymentMethod)
		m.RevenueTotal.Add(ctx, order.TotalAmount.InexactFloat64(), metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
			attribute.String("payment_method", order.PaymentMethod),
		})...))
	}
	logger.Infof("order created: order_id=%s, user=%s, total=%s", order.ID, user.Email, order.TotalAmount.StringFixed(2))
	return &order, nil
}

// ListUserOrders returns the orders of a user, newest first.
func (s *OrderService) ListUserOrders(userID int64) []models.Order {
	return s.list(func(rec *orderRecord) bool { return rec.userID == userID })
}

// ListAllOrders returns every order, newest first.
func (s *OrderService) ListAllOrders() []models.Order {
	return s.list(func(*orderRecord) bool { return true })
}

func (s *OrderService) list(keep func(*orderRecord) bool) []models.Order {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	out := []models.Order{}
	for i := len(s.store.orders) - 1; i >= 0; i-- {
		if rec := s.store.orders[i]; keep(rec) {
			out = append(out, rec.order)
		}
	}
	return out
}

// find returns an order visible to user. Callers hold the lock.
func (s *OrderService) find(user models.User, id string) (*orderRecord, error) {
	for _, rec := range s.store.orders {
		if rec.order.ID == id && (rec.userID == user.ID || user.IsAdmin()) {
			return rec, nil
		}
	}
	return nil, errors.NotFoundf("order %q", id)
}

// GetOrder returns an order owned by user, or any order for an admin.
func (s *OrderService) GetOrder(user models.User, id string) (*models.Order, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	rec, err := s.find(user, id)
	if err != nil {
		return nil, err
	}
	out := rec.order
	return &out, nil
}

// CancelOrder cancels a pending or processing order and restocks its items.
func (s *OrderService) CancelOrder(user models.User, id string) (*models.Order, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	rec, err := s.find(user, id)
	if err != nil {
		return nil, err
	}
	switch rec.order.Status {
	case models.OrderPending, models.OrderProcessing:
	default:
		return nil, errors.NotValidf("cancelling a %s order", rec.order.Status)
	}
	s.setStatus(rec, models.OrderCancelled)
	out := rec.order
	return &out, nil
}

// UpdateOrderStatus moves any order to status. Admin only; no workflow is
// enforced.
func (s *OrderService) UpdateOrderStatus(id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, errors.NotValidf("order status %q", status)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for _, rec := range s.store.orders {
		if rec.order.ID == id {
			s.setStatus(rec, status)
			out := rec.order
			return &out, nil
		}
	}
	return nil, errors.NotFoundf("order %q", id)
}

// setStatus applies a status change and its stock and payment side
// effects. Callers hold the lock.
func (s *OrderService) setStatus(rec *orderRecord, status models.OrderStatus) {
	prev := rec.order.Status
	rec.order.Status = status
	rec.order.UpdatedAt = s.store.now()

	if status == models.OrderCancelled && prev != models.OrderCancelled {
		for _, item := range rec.order.Items {
			if p, ok := s.store.products[item.Product.ID]; ok {
				p.Stock += item.Quantity
				p.IsInStock = p.Stock > 0
			}
		}
		if rec.order.PaymentStatus == models.PaymentCompleted {
			rec.order.PaymentStatus = models.PaymentRefunded
		}
	}
	if status == models.OrderDelivered && rec.order.PaymentStatus == models.PaymentPending {
		rec.order.PaymentStatus = models.PaymentCompleted
	}
	logger.Infof("order %s: %s -> %s", rec.order.ID, prev, status)
}

// Receipt renders the PDF receipt of an order visible to user.
func (s *OrderService) Receipt(user models.User, id string) ([]byte, error) {
	order, err := s.GetOrder(user, id)
	if err != nil {
		return nil, err
	}
	return renderReceipt(order), nil
}
