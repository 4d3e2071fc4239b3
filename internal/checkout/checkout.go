// Package checkout drives the Shipping -> Payment -> Review -> Submitted
// wizard as an explicit state machine with guarded transitions.
package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/payment"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
)

var logger = loggo.GetLogger("storefront.checkout")

// ErrEmptyCart is returned when there is nothing to check out.
const ErrEmptyCart = errors.ConstError("cart is empty")

// Step is a state of the wizard.
type Step int

const (
	StepShipping Step = iota
	StepPayment
	StepReview
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	case StepSubmitted:
		return "submitted"
	}
	return "unknown"
}

// Method is a payment method as the backend names it.
type Method string

const (
	MethodCard   Method = models.PaymentMethodCard
	MethodManual Method = models.PaymentMethodManual
)

// Label is the human name of a method.
func (m Method) Label() string {
	switch m {
	case MethodCard:
		return "Credit/Debit Card (Stripe)"
	case MethodManual:
		return "Mock Payment (Demo)"
	}
	return "Not selected"
}

// ShippingDetails is the first step's form.
type ShippingDetails struct {
	Address    string
	PostalCode string
}

// CartSource is the cart store as checkout uses it.
type CartSource interface {
	Fetch(ctx context.Context) (*models.Cart, error)
	Snapshot() state.CartState
}

// OrderPlacer creates orders.
type OrderPlacer interface {
	Create(ctx context.Context, req models.OrderCreate) (*models.Order, error)
}

// Authorizer authorizes card payments.
type Authorizer interface {
	Authorize(ctx context.Context, amount decimal.Decimal, currency string, card payment.CardInput) (payment.Authorization, error)
}

// Config holds the collaborators of a Checkout.
type Config struct {
	Cart     CartSource
	Orders   OrderPlacer
	Payments Authorizer
	// Profile returns the logged-in user, or nil.
	Profile  func() *models.User
	Currency string
	Metrics  *metrics.AppMetrics
}

// State is a snapshot of the wizard.
type State struct {
	Step          Step
	Shipping      ShippingDetails
	Method        Method
	Authorization *payment.Authorization
	Authorizing   bool
	Submitting    bool
	OrderID       string
}

// Checkout is one run of the wizard. It is safe for concurrent use.
type Checkout struct {
	cfg Config

	mu          sync.Mutex
	step        Step
	shipping    ShippingDetails
	method      Method
	auth        *payment.Authorization
	authorizing bool
	submitting  bool
	orderID     string
}

func New(cfg Config) *Checkout {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Checkout{cfg: cfg}
}

// State returns a copy of the wizard state.
func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := State{
		Step:        c.step,
		Shipping:    c.shipping,
		Method:      c.method,
		Authorizing: c.authorizing,
		Submitting:  c.submitting,
		OrderID:     c.orderID,
	}
	if c.auth != nil {
		a := *c.auth
		out.Authorization = &a
	}
	return out
}

// Start re-fetches the cart and resets the wizard to the shipping step.
// An empty cart yields ErrEmptyCart and the wizard must not be shown.
func (c *Checkout) Start(ctx context.Context) error {
	cart, err := c.cfg.Cart.Fetch(ctx)
	if err != nil && !errors.Is(err, state.ErrStale) {
		return errors.Annotate(err, "loading cart")
	}
	if errors.Is(err, state.ErrStale) {
		cart = c.cfg.Cart.Snapshot().Cart
	}
	if cart.IsEmpty() {
		return ErrEmptyCart
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.step
	c.step = StepShipping
	c.method = ""
	c.auth = nil
	c.orderID = ""
	if c.shipping.Address == "" && c.cfg.Profile != nil {
		if u := c.cfg.Profile(); u != nil {
			c.shipping.Address = u.Address
		}
	}
	c.record(ctx, from, StepShipping)
	return nil
}

// SubmitShipping validates the shipping form and moves to the payment step.
func (c *Checkout) SubmitShipping(ctx context.Context, details ShippingDetails) error {
	details.Address = strings.TrimSpace(details.Address)
	details.PostalCode = strings.TrimSpace(details.PostalCode)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(StepShipping); err != nil {
		return err
	}
	if details.Address == "" {
		return errors.NotValidf("empty shipping address")
	}
	if details.PostalCode == "" {
		return errors.NotValidf("empty postal code")
	}
	c.shipping = details
	c.moveTo(ctx, StepPayment)
	return nil
}

// SelectMethod chooses how to pay.
func (c *Checkout) SelectMethod(m Method) error {
	if m != MethodCard && m != MethodManual {
		return errors.NotValidf("payment method %q", m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(StepPayment); err != nil {
		return err
	}
	c.method = m
	return nil
}

// Authorize authorizes the current cart total on card. A failure leaves
// any earlier authorization in place.
func (c *Checkout) Authorize(ctx context.Context, card payment.CardInput) (payment.Authorization, error) {
	c.mu.Lock()
	if err := c.expect(StepPayment); err != nil {
		c.mu.Unlock()
		return payment.Authorization{}, err
	}
	if c.method != MethodCard {
		c.mu.Unlock()
		return payment.Authorization{}, errors.NotValidf("card authorization with method %q", c.method)
	}
	if c.authorizing {
		c.mu.Unlock()
		return payment.Authorization{}, errors.New("an authorization is already in progress")
	}
	c.authorizing = true
	card.PostalCode = c.shipping.PostalCode
	c.mu.Unlock()

	total := c.total()
	auth, err := c.cfg.Payments.Authorize(ctx, total, c.cfg.Currency, card)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.authorizing = false
	if err != nil {
		return payment.Authorization{}, errors.Trace(err)
	}
	c.auth = &auth
	return auth, nil
}

// ContinueToReview moves to the review step. Card payments need an
// authorization of exactly the current cart total.
func (c *Checkout) ContinueToReview(ctx context.Context) error {
	total := c.total()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(StepPayment); err != nil {
		return err
	}
	switch c.method {
	case MethodManual:
	case MethodCard:
		if err := c.checkAuthorization(total); err != nil {
			return err
		}
	default:
		return errors.NotValidf("missing payment method")
	}
	c.moveTo(ctx, StepReview)
	return nil
}

// Back goes one step back. The authorization is kept.
func (c *Checkout) Back(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.step {
	case StepPayment:
		c.moveTo(ctx, StepShipping)
	case StepReview:
		c.moveTo(ctx, StepPayment)
	default:
		return errors.NotValidf("going back from %s", c.step)
	}
	return nil
}

// Submit places the order. On failure the wizard stays at review.
func (c *Checkout) Submit(ctx context.Context) (*models.Order, error) {
	total := c.total()

	c.mu.Lock()
	if err := c.expect(StepReview); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, errors.New("order is already being placed")
	}
	if c.cfg.Cart.Snapshot().Cart.IsEmpty() {
		c.mu.Unlock()
		return nil, ErrEmptyCart
	}
	req := models.OrderCreate{
		ShippingAddress: c.shipping.Address,
		PostalCode:      c.shipping.PostalCode,
		PaymentMethod:   string(c.method),
	}
	if c.method == MethodCard {
		if err := c.checkAuthorization(total); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		req.PaymentIntentID = c.auth.IntentID
	}
	c.submitting = true
	c.mu.Unlock()

	order, err := c.cfg.Orders.Create(ctx, req)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.mu.Unlock()
		logger.Debugf("placing order failed: %v", err)
		return nil, errors.Trace(err)
	}
	c.orderID = order.ID
	c.moveTo(ctx, StepSubmitted)
	c.mu.Unlock()

	logger.Infof("placed order %s (%s)", order.ID, req.PaymentMethod)
	c.cfg.Metrics.RecordOrderCreated(ctx, req.PaymentMethod)
	// The server emptied the cart.
	if _, err := c.cfg.Cart.Fetch(ctx); err != nil && !errors.Is(err, state.ErrStale) {
		logger.Warningf("refreshing cart after order %s: %v", order.ID, err)
	}
	return order, nil
}

// checkAuthorization requires a card authorization of exactly total.
// Callers hold c.mu.
func (c *Checkout) checkAuthorization(total decimal.Decimal) error {
	if c.auth == nil {
		return errors.NewNotValid(nil, "please complete the card payment first")
	}
	if !c.auth.Amount.Equal(total) {
		return errors.NewNotValid(nil, "card authorized for "+c.auth.Amount.StringFixed(2)+
			" but the cart total is "+total.StringFixed(2)+", please authorize again")
	}
	return nil
}

// total is the server's cart total.
func (c *Checkout) total() decimal.Decimal {
	cart := c.cfg.Cart.Snapshot().Cart
	if cart == nil {
		return decimal.Zero
	}
	return cart.TotalPrice
}

// expect checks the current step. Callers hold c.mu.
func (c *Checkout) expect(step Step) error {
	if c.step != step {
		return errors.NotValidf("%s action at %s step", step, c.step)
	}
	return nil
}

// moveTo changes step. Callers hold c.mu.
func (c *Checkout) moveTo(ctx context.Context, to Step) {
	from := c.step
	c.step = to
	c.record(ctx, from, to)
}

func (c *Checkout) record(ctx context.Context, from, to Step) {
	logger.Debugf("%s -> %s", from, to)
	c.cfg.Metrics.RecordTransition(ctx, from.String(), to.String())
}
