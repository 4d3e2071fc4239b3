package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/api"
	"github.com/SigNoz/ecommerce-go-storefront/internal/mockapi/apitest"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/services"
)

func TestNewRejectsBadBaseURL(t *testing.T) {
	c := qt.New(t)
	_, err := api.New(api.Config{BaseURL: "localhost:8000"})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestRequestHeaders(t *testing.T) {
	c := qt.New(t)
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		c.Check(r.URL.Path, qt.Equals, "/api/cart/")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": 1, "items": [], "total_price": "0.00", "total_items": 0}`)
	}))
	defer srv.Close()

	tokens := &api.MemoryTokenStore{}
	c.Assert(tokens.SetToken("abc"), qt.IsNil)
	client, err := api.New(api.Config{BaseURL: srv.URL + "/api/", Tokens: tokens})
	c.Assert(err, qt.IsNil)

	cart, err := client.Cart.Get(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(cart.IsEmpty(), qt.IsTrue)
	c.Assert(got.Get("Authorization"), qt.Equals, "Bearer abc")
	c.Assert(got.Get("X-Request-ID"), qt.HasLen, 36)
}

func TestNoCredentialNoHeader(t *testing.T) {
	c := qt.New(t)
	srv := apitest.New(c)
	client := srv.Client(c)

	page, err := client.Products.List(context.Background(), models.ProductQuery{})
	c.Assert(err, qt.IsNil)
	c.Assert(page.Count, qt.Equals, 7)

	_, err = client.Cart.Get(context.Background())
	c.Assert(errors.Is(err, errors.Unauthorized), qt.IsTrue)
}

func TestUnauthorizedClearsCredential(t *testing.T) {
	c := qt.New(t)
	srv := apitest.New(c)

	tokens := &api.MemoryTokenStore{}
	c.Assert(tokens.SetToken("expired"), qt.IsNil)
	calls := 0
	client, err := api.New(api.Config{
		BaseURL:        srv.URL + "/api",
		Tokens:         tokens,
		OnUnauthorized: func() { calls++ },
	})
	c.Assert(err, qt.IsNil)

	_, err = client.Orders.List(context.Background())
	c.Assert(errors.Is(err, errors.Unauthorized), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, "Given token not valid for any token type")
	c.Assert(calls, qt.Equals, 1)
	token, _ := tokens.Token()
	c.Assert(token, qt.Equals, "")

	// No retry happens.
	c.Assert(srv.Count("GET /api/orders/"), qt.Equals, 1)
}

func TestLoginStoresToken(t *testing.T) {
	c := qt.New(t)
	srv := apitest.New(c)
	client := srv.Client(c)
	ctx := context.Background()

	resp, err := client.Auth.Login(ctx, models.LoginCredentials{Email: services.CustomerEmail, Password: services.CustomerPassword})
	c.Assert(err, qt.IsNil)
	c.Assert(resp.User.Role, qt.Equals, models.RoleCustomer)
	token, _ := client.Tokens().Token()
	c.Assert(token, qt.Equals, resp.Tokens.Access)

	me, err := client.Auth.Me(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(me.Email, qt.Equals, services.CustomerEmail)

	updated, err := client.Auth.UpdateProfile(ctx, models.ProfileUpdate{FirstName: "Casey", LastName: "Jones", Address: "1 Main St"})
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Name(), qt.Equals, "Casey Jones")

	c.Assert(client.Auth.Logout(), qt.IsNil)
	token, _ = client.Tokens().Token()
	c.Assert(token, qt.Equals, "")
}

func TestRegisterReportsServerMessage(t *testing.T) {
	c := qt.New(t)
	srv := apitest.New(c)
	client := srv.Client(c)

	_, err := client.Auth.Register(context.Background(), models.RegisterData{
		Username: "casey2", Email: services.CustomerEmail, FirstName: "C", LastName: "C",
		Password: "password1", PasswordConfirm: "password1",
	})
	c.Assert(errors.Is(err, errors.AlreadyExists), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `User with email "customer@example.com" already exists`)

	user, err := client.Auth.Register(context.Background(), models.RegisterData{
		Username: "casey2", Email: "casey2@example.com", FirstName: "C", LastName: "C",
		Password: "password1", PasswordConfirm: "password1",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(user.Username, qt.Equals, "casey2")
	token, _ := client.Tokens().Token()
	c.Assert(token, qt.Equals, "")
}

func TestCatalog(t *testing.T) {
	c := qt.New(t)
	srv := apitest.New(c)
	client := srv.Client(c)
	ctx := context.Background()

	cats, err := client.Products.Categories(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(cats, qt.HasLen, 3)

	page, err := client.Products.List(ctx, models.ProductQuery{Search: "lamp"})
	c.Assert(err, qt.IsNil)
	c.Assert(page.Count, qt.Equals, 1)
	c.Assert(page.Results[0].Price.StringFixed(2), qt.Equals, "27.45")
	c.Assert(srv.Requests()[len(srv.Requests())-1], qt.Equals, "GET /api/products/?search=lamp")

	p, err := client.Products.Get(ctx, page.Results[0].ID)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Name, qt.Equals, "Desk Lamp")

	_, err = client.Products.Get(ctx, 9999)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)

	featured, err := client.Products.Featured(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(featured, qt.HasLen, 4)
}

func TestAdminProducts(t *testing.T) {
	c := qt.New(t)
	srv := apitest.New(c)
	ctx := context.Background()
	admin := srv.Admin(c)

	cats, err := admin.Products.Categories(ctx)
	c.Assert(err, qt.IsNil)

	image := filepath.Join(c.TempDir(), "poster.png")
	c.Assert(os.WriteFile(image, []byte("\x89PNG fake"), 0644), qt.IsNil)
	form := models.ProductForm{
		Name: "Poster", Description: "A2 print", Price: decimal.RequireFromString("15.5"),
		Category: cats[0].ID, Stock: 10, IsActive: true, ImagePath: image,
	}
	created, err := admin.Products.Create(ctx, form)
	c.Assert(err, qt.IsNil)
	c.Assert(created.Image, qt.Equals, "/media/products/poster.png")
	c.Assert(created.Price.StringFixed(2), qt.Equals, "15.50")

	form.ImagePath = ""
	form.Stock = 0
	updated, err := admin.Products.Update(ctx, created.ID, form)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.IsInStock, qt.IsFalse)
	c.Assert(updated.Image, qt.Equals, "/media/products/poster.png")

	customer := srv.Customer(c)
	_, err = customer.Products.Create(ctx, form)
	c.Assert(errors.Is(err, errors.Forbidden), qt.IsTrue)

	c.Assert(admin.Products.Delete(ctx, created.ID), qt.IsNil)
	_, err = admin.Products.Get(ctx, created.ID)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func TestCartAndOrders(t *testing.T) {
	c := qt.New(t)
	srv := apitest.New(c)
	ctx := context.Background()
	client := srv.Customer(c)

	page, err := client.Products.List(ctx, models.ProductQuery{Search: "charger"})
	c.Assert(err, qt.IsNil)
	charger := page.Results[0]

	c.Assert(client.Cart.Add(ctx, charger.ID, 2), qt.IsNil)
	err = client.Cart.Add(ctx, charger.ID, 10)
	c.Assert(errors.Is(err, errors.BadRequest), qt.IsTrue)

	cart, err := client.Cart.Get(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(cart.TotalPrice.StringFixed(2), qt.Equals, "79.00")
	c.Assert(client.Cart.Update(ctx, cart.Items[0].ID, 3), qt.IsNil)

	intent, err := client.Payments.CreateIntent(ctx, models.PaymentIntentRequest{Amount: 11850, Currency: "usd", Description: "E-commerce order payment"})
	c.Assert(err, qt.IsNil)
	order, err := client.Orders.Create(ctx, models.OrderCreate{
		ShippingAddress: "1 Main St", PostalCode: "10001",
		PaymentMethod: models.PaymentMethodCard, PaymentIntentID: intent.ID,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(order.TotalAmount.StringFixed(2), qt.Equals, "118.50")

	orders, err := client.Orders.List(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(orders, qt.HasLen, 1)

	body, contentType, err := client.Orders.Receipt(ctx, order.ID)
	c.Assert(err, qt.IsNil)
	data, err := io.ReadAll(body)
	c.Assert(body.Close(), qt.IsNil)
	c.Assert(err, qt.IsNil)
	c.Assert(contentType, qt.Equals, "application/pdf")
	c.Assert(string(data[:8]), qt.Equals, "%PDF-1.4")

	c.Assert(client.Orders.Cancel(ctx, order.ID), qt.IsNil)
	got, err := client.Orders.Get(ctx, order.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Status, qt.Equals, models.OrderCancelled)
	c.Assert(got.PaymentStatus, qt.Equals, models.PaymentRefunded)

	_, err = client.Orders.ListAll(ctx)
	c.Assert(errors.Is(err, errors.Forbidden), qt.IsTrue)

	admin := srv.Admin(c)
	moved, err := admin.Orders.UpdateStatus(ctx, order.ID, models.OrderShipped)
	c.Assert(err, qt.IsNil)
	c.Assert(moved.Status, qt.Equals, models.OrderShipped)
}

func TestFileTokenStore(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "nested", "credentials.yaml")
	store := api.NewFileTokenStore(path)

	token, err := store.Token()
	c.Assert(err, qt.IsNil)
	c.Assert(token, qt.Equals, "")

	c.Assert(store.SetToken("secret"), qt.IsNil)
	info, err := os.Stat(path)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Mode().Perm(), qt.Equals, os.FileMode(0600))

	token, err = api.NewFileTokenStore(path).Token()
	c.Assert(err, qt.IsNil)
	c.Assert(token, qt.Equals, "secret")

	c.Assert(store.Clear(), qt.IsNil)
	c.Assert(store.Clear(), qt.IsNil)
	token, _ = store.Token()
	c.Assert(token, qt.Equals, "")
}
