package checkout_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/api"
	"github.com/SigNoz/ecommerce-go-storefront/internal/checkout"
	"github.com/SigNoz/ecommerce-go-storefront/internal/mockapi/apitest"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/payment"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
)

type fixture struct {
	srv    *apitest.Server
	client *api.Client
	cart   *state.CartStore
	orders *state.OrderStore
	flow   *checkout.Checkout
}

func newFixture(c *qt.C, payments checkout.Authorizer) *fixture {
	srv := apitest.New(c)
	client := srv.Customer(c)
	user, err := client.Auth.Me(context.Background())
	c.Assert(err, qt.IsNil)
	f := &fixture{
		srv:    srv,
		client: client,
		cart:   state.NewCartStore(client.Cart, nil),
		orders: state.NewOrderStore(client.Orders, nil),
	}
	if payments == nil {
		payments = payment.NewAuthorizer(client.Payments, payment.SandboxConfirmer{}, nil)
	}
	f.flow = checkout.New(checkout.Config{
		Cart:     f.cart,
		Orders:   f.orders,
		Payments: payments,
		Profile:  func() *models.User { return user },
		Currency: "usd",
	})
	srv.Reset()
	return f
}

func (f *fixture) addToCart(c *qt.C, name string, qty int) {
	page, err := f.client.Products.List(context.Background(), models.ProductQuery{Search: name})
	c.Assert(err, qt.IsNil)
	c.Assert(page.Results, qt.Not(qt.HasLen), 0)
	c.Assert(f.cart.Add(context.Background(), page.Results[0].ID, qty), qt.IsNil)
}

// toPayment starts the wizard and fills in shipping.
func (f *fixture) toPayment(c *qt.C) {
	ctx := context.Background()
	c.Assert(f.flow.Start(ctx), qt.IsNil)
	c.Assert(f.flow.SubmitShipping(ctx, checkout.ShippingDetails{
		Address: f.flow.State().Shipping.Address, PostalCode: " 10001 ",
	}), qt.IsNil)
}

func TestEmptyCartNeverShowsWizard(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)

	err := f.flow.Start(context.Background())
	c.Assert(err, qt.Equals, checkout.ErrEmptyCart)
	c.Assert(f.srv.Requests(), qt.DeepEquals, []string{"GET /api/cart/"})
}

func TestManualCheckoutNeedsNoAuthorization(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	ctx := context.Background()
	f.addToCart(c, "Ceramic Mug", 2)

	c.Assert(f.flow.Start(ctx), qt.IsNil)
	st := f.flow.State()
	c.Assert(st.Step, qt.Equals, checkout.StepShipping)
	c.Assert(st.Shipping.Address, qt.Equals, "221B Baker Street, London")

	err := f.flow.SubmitShipping(ctx, checkout.ShippingDetails{Address: "  ", PostalCode: "10001"})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	err = f.flow.SubmitShipping(ctx, checkout.ShippingDetails{Address: "1 Main St"})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	c.Assert(f.flow.State().Step, qt.Equals, checkout.StepShipping)

	f.toPayment(c)
	c.Assert(f.flow.State().Shipping.PostalCode, qt.Equals, "10001")
	c.Assert(errors.Is(f.flow.ContinueToReview(ctx), errors.NotValid), qt.IsTrue)
	c.Assert(f.flow.SelectMethod(checkout.MethodManual), qt.IsNil)
	c.Assert(f.flow.ContinueToReview(ctx), qt.IsNil)

	summary := f.flow.Summary()
	c.Assert(summary.Total.StringFixed(2), qt.Equals, "24.00")
	c.Assert(summary.ShippingCost.IsZero(), qt.IsTrue)
	c.Assert(summary.MethodLabel, qt.Equals, "Mock Payment (Demo)")

	order, err := f.flow.Submit(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(order.PaymentMethod, qt.Equals, models.PaymentMethodManual)
	c.Assert(order.PaymentStatus, qt.Equals, models.PaymentPending)
	c.Assert(f.flow.State(), qt.DeepEquals, checkout.State{
		Step:     checkout.StepSubmitted,
		Shipping: checkout.ShippingDetails{Address: "221B Baker Street, London", PostalCode: "10001"},
		Method:   checkout.MethodManual,
		OrderID:  order.ID,
	})
	c.Assert(f.srv.Count("POST /api/payments/"), qt.Equals, 0)
	c.Assert(f.cart.Snapshot().Cart.IsEmpty(), qt.IsTrue)
	c.Assert(f.orders.Snapshot().Orders[0].ID, qt.Equals, order.ID)
}

func TestCardCheckout(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	ctx := context.Background()
	f.addToCart(c, "Desk Lamp", 2)
	f.toPayment(c)

	_, err := f.flow.Authorize(ctx, payment.CardInput{Token: payment.TokenVisa})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)

	c.Assert(f.flow.SelectMethod(checkout.MethodCard), qt.IsNil)
	err = f.flow.ContinueToReview(ctx)
	c.Assert(err, qt.ErrorMatches, "please complete the card payment first")

	_, err = f.flow.Authorize(ctx, payment.CardInput{Token: payment.TokenDeclined})
	c.Assert(err, qt.ErrorMatches, "Your card was declined.")
	c.Assert(f.flow.State().Authorization, qt.IsNil)
	c.Assert(f.flow.State().Authorizing, qt.IsFalse)

	auth, err := f.flow.Authorize(ctx, payment.CardInput{Token: payment.TokenVisa})
	c.Assert(err, qt.IsNil)
	c.Assert(auth.Cents, qt.Equals, int64(5490))

	// A later decline keeps the earlier authorization.
	_, err = f.flow.Authorize(ctx, payment.CardInput{Token: payment.TokenDeclined})
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(f.flow.State().Authorization.IntentID, qt.Equals, auth.IntentID)
	c.Assert(f.srv.Count("POST /api/payments/create-intent/"), qt.Equals, 3)

	c.Assert(f.flow.ContinueToReview(ctx), qt.IsNil)
	c.Assert(f.flow.Back(ctx), qt.IsNil)
	c.Assert(f.flow.Back(ctx), qt.IsNil)
	c.Assert(f.flow.State().Step, qt.Equals, checkout.StepShipping)
	c.Assert(f.flow.State().Authorization.IntentID, qt.Equals, auth.IntentID)
	c.Assert(errors.Is(f.flow.Back(ctx), errors.NotValid), qt.IsTrue)

	c.Assert(f.flow.SubmitShipping(ctx, checkout.ShippingDetails{Address: "1 Main St", PostalCode: "10001"}), qt.IsNil)
	c.Assert(f.flow.ContinueToReview(ctx), qt.IsNil)
	c.Assert(f.flow.Summary().Authorization, qt.Equals, checkout.MaskID(auth.IntentID))

	order, err := f.flow.Submit(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(order.PaymentStatus, qt.Equals, models.PaymentCompleted)
	c.Assert(order.TotalAmount.StringFixed(2), qt.Equals, "54.90")
}

func TestAuthorizationMustMatchCurrentTotal(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	ctx := context.Background()
	f.addToCart(c, "Ceramic Mug", 1)
	f.toPayment(c)
	c.Assert(f.flow.SelectMethod(checkout.MethodCard), qt.IsNil)
	_, err := f.flow.Authorize(ctx, payment.CardInput{Token: payment.TokenVisa})
	c.Assert(err, qt.IsNil)

	f.addToCart(c, "Ceramic Mug", 1)
	err = f.flow.ContinueToReview(ctx)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, "card authorized for 12.00 but the cart total is 24.00, please authorize again")
	c.Assert(f.flow.State().Step, qt.Equals, checkout.StepPayment)

	_, err = f.flow.Authorize(ctx, payment.CardInput{Token: payment.TokenVisa})
	c.Assert(err, qt.IsNil)
	c.Assert(f.flow.ContinueToReview(ctx), qt.IsNil)
}

func TestSubmitEmptyCartMakesNoCall(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	ctx := context.Background()
	f.addToCart(c, "Ceramic Mug", 1)
	f.toPayment(c)
	c.Assert(f.flow.SelectMethod(checkout.MethodManual), qt.IsNil)
	c.Assert(f.flow.ContinueToReview(ctx), qt.IsNil)
	c.Assert(f.cart.Clear(ctx), qt.IsNil)

	f.srv.Reset()
	_, err := f.flow.Submit(ctx)
	c.Assert(err, qt.Equals, checkout.ErrEmptyCart)
	c.Assert(f.srv.Requests(), qt.HasLen, 0)
	c.Assert(f.flow.State().Step, qt.Equals, checkout.StepReview)
}

func TestSubmitFailureStaysAtReview(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	ctx := context.Background()
	f.addToCart(c, "Distributed Systems", 3)
	f.toPayment(c)
	c.Assert(f.flow.SelectMethod(checkout.MethodManual), qt.IsNil)
	c.Assert(f.flow.ContinueToReview(ctx), qt.IsNil)

	// Someone else buys the last copies first.
	admin := f.srv.Admin(c)
	page, err := admin.Products.List(ctx, models.ProductQuery{Search: "Distributed Systems"})
	c.Assert(err, qt.IsNil)
	p := page.Results[0]
	_, err = admin.Products.Update(ctx, p.ID, models.ProductForm{
		Name: p.Name, Description: p.Description, Price: p.Price, Category: p.Category, Stock: 1, IsActive: true,
	})
	c.Assert(err, qt.IsNil)

	_, err = f.flow.Submit(ctx)
	c.Assert(errors.Is(err, errors.BadRequest), qt.IsTrue)
	st := f.flow.State()
	c.Assert(st.Step, qt.Equals, checkout.StepReview)
	c.Assert(st.OrderID, qt.Equals, "")
	c.Assert(st.Submitting, qt.IsFalse)
}

// blockingAuthorizer holds every authorization until released.
type blockingAuthorizer struct {
	started chan payment.CardInput
	release chan struct{}
	amounts []decimal.Decimal
}

func (b *blockingAuthorizer) Authorize(ctx context.Context, amount decimal.Decimal, currency string, card payment.CardInput) (payment.Authorization, error) {
	b.amounts = append(b.amounts, amount)
	b.started <- card
	<-b.release
	return payment.Authorization{IntentID: "pi_0123456789", Amount: amount, Currency: currency}, nil
}

func TestConcurrentAuthorizeRefused(t *testing.T) {
	c := qt.New(t)
	blocker := &blockingAuthorizer{started: make(chan payment.CardInput), release: make(chan struct{})}
	f := newFixture(c, blocker)
	ctx := context.Background()
	f.addToCart(c, "Ceramic Mug", 1)
	f.toPayment(c)
	c.Assert(f.flow.SelectMethod(checkout.MethodCard), qt.IsNil)

	done := make(chan error, 1)
	go func() {
		_, err := f.flow.Authorize(ctx, payment.CardInput{Token: "tok_visa", PostalCode: "99999"})
		done <- err
	}()
	card := <-blocker.started
	// The billing postal code is the shipping one.
	c.Assert(card.PostalCode, qt.Equals, "10001")
	c.Assert(f.flow.State().Authorizing, qt.IsTrue)

	_, err := f.flow.Authorize(ctx, payment.CardInput{Token: "tok_visa"})
	c.Assert(err, qt.ErrorMatches, "an authorization is already in progress")

	close(blocker.release)
	c.Assert(<-done, qt.IsNil)
	c.Assert(blocker.amounts, qt.HasLen, 1)
	c.Assert(blocker.amounts[0].StringFixed(2), qt.Equals, "12.00")
	c.Assert(f.flow.Summary().Authorization, qt.Equals, "...23456789")
}

func TestStepString(t *testing.T) {
	c := qt.New(t)
	c.Assert(checkout.StepReview.String(), qt.Equals, "review")
	c.Assert(checkout.MaskID("pi_1"), qt.Equals, "pi_1")
}

func TestSubmitRechecksAuthorizedAmount(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, nil)
	ctx := context.Background()
	f.addToCart(c, "Ceramic Mug", 1)
	f.toPayment(c)
	c.Assert(f.flow.SelectMethod(checkout.MethodCard), qt.IsNil)
	_, err := f.flow.Authorize(ctx, payment.CardInput{Token: payment.TokenVisa})
	c.Assert(err, qt.IsNil)
	c.Assert(f.flow.ContinueToReview(ctx), qt.IsNil)

	// The cart grows after review.
	f.addToCart(c, "Ceramic Mug", 1)
	f.srv.Reset()

	_, err = f.flow.Submit(ctx)
	c.Assert(err, qt.ErrorMatches, "card authorized for 12.00 but the cart total is 24.00, please authorize again")
	c.Assert(f.flow.State().Step, qt.Equals, checkout.StepReview)
	c.Assert(f.srv.Count("POST /api/orders/"), qt.Equals, 0)
}
