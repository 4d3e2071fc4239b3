package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

type fixture struct {
	store    *Store
	users    *UserService
	products *ProductService
	carts    *CartService
	orders   *OrderService
	payments *PaymentService
	customer models.User
	admin    models.User
}

func newFixture(c *qt.C) *fixture {
	store := NewStore(testclock.NewClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)), nil)
	c.Assert(store.Seed(), qt.IsNil)
	f := &fixture{
		store:    store,
		users:    NewUserService(store),
		products: NewProductService(store),
		carts:    NewCartService(store),
		orders:   NewOrderService(store),
		payments: NewPaymentService(store),
	}
	resp, err := f.users.Login(models.LoginCredentials{Email: CustomerEmail, Password: CustomerPassword})
	c.Assert(err, qt.IsNil)
	f.customer = resp.User
	resp, err = f.users.Login(models.LoginCredentials{Email: AdminEmail, Password: AdminPassword})
	c.Assert(err, qt.IsNil)
	f.admin = resp.User
	return f
}

func (f *fixture) product(c *qt.C, name string) models.Product {
	for _, p := range f.products.ListProducts(models.ProductQuery{Search: name}, true).Results {
		if p.Name == name {
			return p
		}
	}
	c.Fatalf("no product %q", name)
	return models.Product{}
}

func TestLogin(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	_, err := f.users.Login(models.LoginCredentials{Email: CustomerEmail, Password: "wrong"})
	c.Assert(errors.Is(err, errors.Unauthorized), qt.IsTrue)

	resp, err := f.users.Login(models.LoginCredentials{Email: AdminEmail, Password: AdminPassword})
	c.Assert(err, qt.IsNil)
	user, err := f.users.Authenticate(resp.Tokens.Access)
	c.Assert(err, qt.IsNil)
	c.Assert(user.IsAdmin(), qt.IsTrue)

	f.users.Revoke(resp.Tokens.Access)
	_, err = f.users.Authenticate(resp.Tokens.Access)
	c.Assert(errors.Is(err, errors.Unauthorized), qt.IsTrue)
}

func TestRegisterValidation(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	data := models.RegisterData{
		Username: "newbie", Email: "new@example.com", FirstName: "N", LastName: "B",
		Password: "longenough", PasswordConfirm: "longenough",
	}
	_, err := f.users.Register(data)
	c.Assert(err, qt.IsNil)

	_, err = f.users.Register(data)
	c.Assert(errors.Is(err, errors.AlreadyExists), qt.IsTrue)

	data.Email, data.Username, data.PasswordConfirm = "other@example.com", "other", "different"
	_, err = f.users.Register(data)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestListProductsPagination(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	for i := 0; i < 20; i++ {
		_, err := f.products.CreateProduct(models.ProductForm{
			Name: "Sticker", Description: "Vinyl", Price: decimal.NewFromInt(1),
			Category: f.product(c, "Ceramic Mug").Category, Stock: 100, IsActive: true,
		}, f.admin)
		c.Assert(err, qt.IsNil)
	}

	page := f.products.ListProducts(models.ProductQuery{}, false)
	c.Assert(page.Count, qt.Equals, 27)
	c.Assert(page.Results, qt.HasLen, 20)
	c.Assert(*page.Next, qt.Equals, "?page=2")
	c.Assert(page.Previous, qt.IsNil)

	page = f.products.ListProducts(models.ProductQuery{Page: 2}, false)
	c.Assert(page.Results, qt.HasLen, 7)
	c.Assert(page.Next, qt.IsNil)

	page = f.products.ListProducts(models.ProductQuery{Search: "sticker"}, false)
	c.Assert(page.Count, qt.Equals, 20)
}

func TestCartRespectsStock(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ctx := context.Background()
	charger := f.product(c, "USB-C Charger")

	c.Assert(f.carts.AddToCart(ctx, f.customer.ID, charger.ID, 4), qt.IsNil)
	err := f.carts.AddToCart(ctx, f.customer.ID, charger.ID, 2)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)

	cart := f.carts.GetCart(f.customer.ID)
	c.Assert(cart.Items, qt.HasLen, 1)
	c.Assert(cart.TotalItems, qt.Equals, 4)
	c.Assert(cart.TotalPrice.String(), qt.Equals, "158")

	itemID := cart.Items[0].ID
	c.Assert(f.carts.UpdateCartItem(ctx, f.customer.ID, itemID, 5), qt.IsNil)
	c.Assert(errors.Is(f.carts.UpdateCartItem(ctx, f.customer.ID, itemID, 6), errors.NotValid), qt.IsTrue)
	c.Assert(errors.Is(f.carts.UpdateCartItem(ctx, f.customer.ID, itemID, 0), errors.NotValid), qt.IsTrue)

	c.Assert(f.carts.RemoveFromCart(ctx, f.customer.ID, itemID), qt.IsNil)
	c.Assert(f.carts.GetCart(f.customer.ID).Items, qt.HasLen, 0)
}

func TestCreateOrderManual(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ctx := context.Background()
	mug := f.product(c, "Ceramic Mug")
	c.Assert(f.carts.AddToCart(ctx, f.customer.ID, mug.ID, 3), qt.IsNil)

	order, err := f.orders.CreateOrder(ctx, f.customer, models.OrderCreate{
		ShippingAddress: "1 Main St", PostalCode: "10001", PaymentMethod: models.PaymentMethodManual,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(order.TotalAmount.StringFixed(2), qt.Equals, "36.00")
	c.Assert(order.Status, qt.Equals, models.OrderPending)
	c.Assert(order.PaymentStatus, qt.Equals, models.PaymentPending)
	c.Assert(f.carts.GetCart(f.customer.ID).Items, qt.HasLen, 0)
	c.Assert(f.product(c, "Ceramic Mug").Stock, qt.Equals, 37)

	_, err = f.orders.CreateOrder(ctx, f.customer, models.OrderCreate{
		ShippingAddress: "1 Main St", PaymentMethod: models.PaymentMethodManual,
	})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)

	cancelled, err := f.orders.CancelOrder(f.customer, order.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(cancelled.Status, qt.Equals, models.OrderCancelled)
	c.Assert(f.product(c, "Ceramic Mug").Stock, qt.Equals, 40)

	_, err = f.orders.CancelOrder(f.customer, order.ID)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestCreateOrderCardChecksIntentAmount(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ctx := context.Background()
	lamp := f.product(c, "Desk Lamp")
	c.Assert(f.carts.AddToCart(ctx, f.customer.ID, lamp.ID, 2), qt.IsNil)

	wrong, err := f.payments.CreateIntent(models.PaymentIntentRequest{Amount: 100, Currency: "usd"})
	c.Assert(err, qt.IsNil)
	_, err = f.orders.CreateOrder(ctx, f.customer, models.OrderCreate{
		ShippingAddress: "1 Main St", PaymentMethod: models.PaymentMethodCard, PaymentIntentID: wrong.ID,
	})
	c.Assert(err, qt.ErrorMatches, "payment intent amount 100 for order total 5490 not valid")

	right, err := f.payments.CreateIntent(models.PaymentIntentRequest{Amount: 5490, Currency: "usd"})
	c.Assert(err, qt.IsNil)
	c.Assert(right.ClientSecret, qt.Matches, right.ID+"_secret_[0-9a-f]{16}")
	order, err := f.orders.CreateOrder(ctx, f.customer, models.OrderCreate{
		ShippingAddress: "1 Main St", PaymentMethod: models.PaymentMethodCard, PaymentIntentID: right.ID,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(order.PaymentStatus, qt.Equals, models.PaymentCompleted)
}

func TestOrderVisibilityAndStatus(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	ctx := context.Background()
	c.Assert(f.carts.AddToCart(ctx, f.customer.ID, f.product(c, "Distributed Systems").ID, 1), qt.IsNil)
	order, err := f.orders.CreateOrder(ctx, f.customer, models.OrderCreate{
		ShippingAddress: "1 Main St", PaymentMethod: models.PaymentMethodManual,
	})
	c.Assert(err, qt.IsNil)

	other, err := f.users.Register(models.RegisterData{
		Username: "other", Email: "other@example.com", FirstName: "O", LastName: "T",
		Password: "password1", PasswordConfirm: "password1",
	})
	c.Assert(err, qt.IsNil)
	_, err = f.orders.GetOrder(other.User, order.ID)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
	c.Assert(f.orders.ListUserOrders(other.User.ID), qt.HasLen, 0)
	c.Assert(f.orders.ListAllOrders(), qt.HasLen, 1)

	_, err = f.orders.UpdateOrderStatus(order.ID, "lost")
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	updated, err := f.orders.UpdateOrderStatus(order.ID, models.OrderDelivered)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.PaymentStatus, qt.Equals, models.PaymentCompleted)

	pdf, err := f.orders.Receipt(f.admin, order.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(bytes.HasPrefix(pdf, []byte("%PDF-1.4")), qt.IsTrue)
	c.Assert(bytes.Contains(pdf, []byte(order.ID)), qt.IsTrue)
}
