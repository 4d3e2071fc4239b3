package views_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/api"
	"github.com/SigNoz/ecommerce-go-storefront/internal/mockapi/apitest"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/services"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
	"github.com/SigNoz/ecommerce-go-storefront/internal/views"
)

type recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

type fixture struct {
	srv    *apitest.Server
	client *api.Client
	deps   views.Deps
	notes  *recorder
}

// newFixture wires stores to a fresh server. With email set the session is
// logged in as that user.
func newFixture(c *qt.C, email, password string) *fixture {
	srv := apitest.New(c)
	client := srv.Client(c)
	notes := &recorder{}
	f := &fixture{
		srv:    srv,
		client: client,
		notes:  notes,
		deps: views.Deps{
			Auth:     state.NewAuthStore(client.Auth, client.Tokens(), nil),
			Cart:     state.NewCartStore(client.Cart, nil),
			Products: state.NewProductStore(client.Products, nil),
			Orders:   state.NewOrderStore(client.Orders, nil),
			Notifier: notes,
		},
	}
	client.SetOnUnauthorized(f.deps.Auth.HandleUnauthorized)
	if email != "" {
		_, err := views.NewLoginForm(f.deps).Submit(context.Background(), email, password)
		c.Assert(err, qt.IsNil)
	}
	srv.Reset()
	return f
}

func (f *fixture) product(c *qt.C, name string) models.Product {
	page, err := f.client.Products.List(context.Background(), models.ProductQuery{Search: name})
	c.Assert(err, qt.IsNil)
	for _, p := range page.Results {
		if p.Name == name {
			return p
		}
	}
	c.Fatalf("no product %q", name)
	return models.Product{}
}

func waitFor(c *qt.C, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSearchIsDebounced(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, "", "")
	clk := testclock.NewClock(time.Now())
	list := views.NewProductList(f.deps, clk, 500*time.Millisecond)
	defer list.Close()

	c.Assert(list.Open(context.Background()), qt.IsNil)
	c.Assert(f.srv.Count("GET /api/products/"), qt.Equals, 2)
	m := list.Model()
	c.Assert(m.Count, qt.Equals, 7)
	c.Assert(m.Categories[0].Label, qt.Equals, "All Categories")
	c.Assert(m.Categories, qt.HasLen, 4)
	f.srv.Reset()

	list.SetSearch("a")
	clk.Advance(200 * time.Millisecond)
	list.SetSearch("ab")
	c.Assert(clk.WaitAdvance(500*time.Millisecond, 5*time.Second, 1), qt.IsNil)
	waitFor(c, func() bool {
		snap := f.deps.Products.Snapshot()
		return snap.Query.Search == "ab" && !snap.Loading
	})
	c.Assert(f.srv.Requests(), qt.DeepEquals, []string{"GET /api/products/?search=ab"})
	// Descriptions match too: "Hot-swappable" and "Dimmable".
	rows := list.Model().Rows
	c.Assert(rows, qt.HasLen, 2)
	c.Assert(rows[0].Name, qt.Equals, "Mechanical Keyboard")
	c.Assert(rows[0].InStock, qt.IsFalse)
	c.Assert(rows[1].Name, qt.Equals, "Desk Lamp")
	c.Assert(rows[1].InStock, qt.IsTrue)
}

func TestCategoryAndPaging(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, "", "")
	clk := testclock.NewClock(time.Now())
	list := views.NewProductList(f.deps, clk, 500*time.Millisecond)
	defer list.Close()
	c.Assert(list.Open(context.Background()), qt.IsNil)

	books := list.Model().Categories[1]
	c.Assert(books.Label, qt.Equals, "Books (2)")
	list.SetCategory(books.ID)
	c.Assert(list.Settle(), qt.IsTrue)
	m := list.Model()
	c.Assert(m.Category, qt.Equals, books.ID)
	c.Assert(m.Rows, qt.HasLen, 2)
	c.Assert(m.HasNext, qt.IsFalse)

	err := list.SetPage(context.Background(), 2)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestAddToCartRequiresLogin(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, "", "")
	list := views.NewProductList(f.deps, testclock.NewClock(time.Now()), time.Second)
	defer list.Close()

	err := list.AddToCart(context.Background(), 6)
	c.Assert(err, qt.Equals, views.ErrLoginRequired)
	c.Assert(f.notes.Errors(), qt.DeepEquals, []string{"Please login to add items to cart"})
	c.Assert(f.srv.Requests(), qt.HasLen, 0)
}

func TestCartIncrementUpToStock(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, services.CustomerEmail, services.CustomerPassword)
	ctx := context.Background()
	charger := f.product(c, "USB-C Charger")
	c.Assert(charger.Stock, qt.Equals, 5)

	list := views.NewProductList(f.deps, testclock.NewClock(time.Now()), time.Second)
	defer list.Close()
	c.Assert(list.AddToCart(ctx, charger.ID), qt.IsNil)

	cart := views.NewCartView(f.deps)
	c.Assert(cart.Open(ctx), qt.IsNil)
	row := cart.Model().Rows[0]
	c.Assert(row.Quantity, qt.Equals, 1)
	c.Assert(row.CanDecrement, qt.IsFalse)

	for i := 0; i < 3; i++ {
		c.Assert(cart.Increment(ctx, row.ItemID), qt.IsNil)
	}
	row = cart.Model().Rows[0]
	c.Assert(row.Quantity, qt.Equals, 4)
	c.Assert(row.CanIncrement, qt.IsTrue)
	c.Assert(row.CanDecrement, qt.IsTrue)

	c.Assert(cart.Increment(ctx, row.ItemID), qt.IsNil)
	m := cart.Model()
	c.Assert(m.Rows[0].Quantity, qt.Equals, 5)
	c.Assert(m.Rows[0].CanIncrement, qt.IsFalse)
	c.Assert(m.Total, qt.Equals, "$197.50")

	f.srv.Reset()
	err := cart.Increment(ctx, row.ItemID)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	c.Assert(f.srv.Requests(), qt.HasLen, 0)
}

func TestCartDecrement(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, services.CustomerEmail, services.CustomerPassword)
	ctx := context.Background()
	c.Assert(f.deps.Cart.Add(ctx, f.product(c, "Ceramic Mug").ID, 2), qt.IsNil)
	cart := views.NewCartView(f.deps)
	itemID := cart.Model().Rows[0].ItemID

	c.Assert(cart.Decrement(ctx, itemID), qt.IsNil)
	c.Assert(cart.Model().Rows[0].Quantity, qt.Equals, 1)

	f.srv.Reset()
	c.Assert(errors.Is(cart.Decrement(ctx, itemID), errors.NotValid), qt.IsTrue)
	c.Assert(f.srv.Requests(), qt.HasLen, 0)

	c.Assert(cart.Remove(ctx, itemID), qt.IsNil)
	m := cart.Model()
	c.Assert(m.Empty, qt.IsTrue)
	c.Assert(m.Rows, qt.HasLen, 0)
}

func TestProductDetailQuantity(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, services.CustomerEmail, services.CustomerPassword)
	ctx := context.Background()
	book := f.product(c, "Distributed Systems")

	detail := views.NewProductDetail(f.deps)
	c.Assert(detail.Open(ctx, book.ID), qt.IsNil)
	m := detail.Model()
	c.Assert(m.Quantity, qt.Equals, 1)
	c.Assert(m.CanDecrement, qt.IsFalse)
	c.Assert(m.CanIncrement, qt.IsTrue)

	c.Assert(detail.SetQuantity(10), qt.Equals, 3)
	m = detail.Model()
	c.Assert(m.CanIncrement, qt.IsFalse)
	c.Assert(m.LinePrice, qt.Equals, "$162.00")
	c.Assert(detail.Increment(), qt.Equals, 3)
	c.Assert(detail.Decrement(), qt.Equals, 2)
	c.Assert(detail.SetQuantity(0), qt.Equals, 1)

	c.Assert(detail.SetQuantity(2), qt.Equals, 2)
	c.Assert(detail.AddToCart(ctx), qt.IsNil)
	c.Assert(f.deps.Cart.Snapshot().Cart.TotalItems, qt.Equals, 2)

	keyboard := f.product(c, "Mechanical Keyboard")
	c.Assert(detail.Open(ctx, keyboard.ID), qt.IsNil)
	c.Assert(detail.Model().CanAdd, qt.IsFalse)
	c.Assert(errors.Is(detail.AddToCart(ctx), errors.NotValid), qt.IsTrue)
}

func TestOrderHistoryAndReceipt(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, services.CustomerEmail, services.CustomerPassword)
	ctx := context.Background()
	c.Assert(f.deps.Cart.Add(ctx, f.product(c, "Desk Lamp").ID, 1), qt.IsNil)
	order, err := f.deps.Orders.Create(ctx, models.OrderCreate{ShippingAddress: "1 Main St", PaymentMethod: models.PaymentMethodManual})
	c.Assert(err, qt.IsNil)

	dir := c.TempDir()
	history := views.NewOrderHistory(f.deps, dir)
	c.Assert(history.Open(ctx), qt.IsNil)
	m := history.Model()
	c.Assert(m.Rows, qt.HasLen, 1)
	row := m.Rows[0]
	c.Assert(row.StatusLabel, qt.Equals, "Pending")
	c.Assert(row.StatusTone, qt.Equals, views.ToneWarning)
	c.Assert(row.Total, qt.Equals, "$27.45")
	c.Assert(row.CanCancel, qt.IsTrue)
	c.Assert(row.PaymentMethod, qt.Equals, "Mock Payment")

	path, err := history.DownloadReceipt(ctx, order.ID)
	c.Assert(err, qt.IsNil)
	data, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data[:8]), qt.Equals, "%PDF-1.4")

	confirmation := views.NewOrderConfirmation(f.deps, dir)
	c.Assert(confirmation.Open(ctx, order.ID), qt.IsNil)
	c.Assert(confirmation.Model().Order.Lines[0].Name, qt.Equals, "Desk Lamp")
	c.Assert(confirmation.Cancel(ctx, order.ID), qt.IsNil)
	c.Assert(confirmation.Model().Order.StatusTone, qt.Equals, views.ToneDanger)
	c.Assert(history.Model().Rows[0].CanCancel, qt.IsFalse)

	_, err = history.DownloadReceipt(ctx, "ORD-NOPE")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
	c.Assert(f.notes.Errors(), qt.HasLen, 1)
}

func TestAdminGuards(t *testing.T) {
	c := qt.New(t)
	anon := newFixture(c, "", "")
	c.Assert(views.NewAdminOrders(anon.deps).Open(context.Background()), qt.Equals, views.ErrLoginRequired)

	customer := newFixture(c, services.CustomerEmail, services.CustomerPassword)
	c.Assert(views.NewAdminProducts(customer.deps).Open(context.Background()), qt.Equals, views.ErrAdminRequired)
	c.Assert(customer.srv.Requests(), qt.HasLen, 0)
}

func TestAdminProducts(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, services.AdminEmail, services.AdminPassword)
	ctx := context.Background()
	admin := views.NewAdminProducts(f.deps)
	c.Assert(admin.Open(ctx), qt.IsNil)
	m := admin.Model()
	c.Assert(m.Rows, qt.HasLen, 7)
	c.Assert(m.Categories, qt.HasLen, 3)

	_, err := admin.Save(ctx, 0, views.ProductInput{Name: "Poster", Price: "-1", Stock: "x"})
	c.Assert(err, qt.ErrorMatches, "category: required; description: required; price: must be a non-negative amount; stock: must be a non-negative whole number")

	created, err := admin.Save(ctx, 0, views.ProductInput{
		Name: "Poster", Description: "A2 print", Price: "9.5", Stock: "10", Category: m.Categories[2].ID, IsActive: true,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(admin.Model().Rows, qt.HasLen, 8)

	in := views.InputFromProduct(*created)
	c.Assert(in.Price, qt.Equals, "9.50")
	in.Stock = "0"
	in.IsActive = false
	_, err = admin.Save(ctx, created.ID, in)
	c.Assert(err, qt.IsNil)
	p, err := admin.Product(created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Stock, qt.Equals, 0)

	c.Assert(admin.Delete(ctx, created.ID), qt.IsNil)
	_, err = admin.Product(created.ID)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func TestAdminOrdersAndDashboard(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	f := newFixture(c, services.AdminEmail, services.AdminPassword)

	customer := f.srv.Customer(c)
	for _, name := range []string{"Ceramic Mug", "Desk Lamp"} {
		c.Assert(customer.Cart.Add(ctx, f.product(c, name).ID, 1), qt.IsNil)
		_, err := customer.Orders.Create(ctx, models.OrderCreate{ShippingAddress: "1 Main St", PaymentMethod: models.PaymentMethodManual})
		c.Assert(err, qt.IsNil)
	}

	orders := views.NewAdminOrders(f.deps)
	c.Assert(orders.Open(ctx), qt.IsNil)
	m := orders.Model()
	c.Assert(m.Rows, qt.HasLen, 2)
	c.Assert(m.Statuses, qt.HasLen, 5)

	f.srv.Reset()
	err := orders.SetStatus(ctx, m.Rows[0].ID, "lost")
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
	c.Assert(f.srv.Requests(), qt.HasLen, 0)

	// Any transition is allowed client-side.
	c.Assert(orders.SetStatus(ctx, m.Rows[0].ID, "Delivered"), qt.IsNil)
	c.Assert(orders.SetStatus(ctx, m.Rows[0].ID, "pending"), qt.IsNil)
	c.Assert(orders.SetStatus(ctx, m.Rows[1].ID, "shipped"), qt.IsNil)
	c.Assert(f.srv.Count("GET /api/orders/admin/all/"), qt.Equals, 3)

	dash := views.NewAdminDashboard(f.deps)
	c.Assert(dash.Open(ctx), qt.IsNil)
	d := dash.Model()
	c.Assert(d.TotalOrders, qt.Equals, 2)
	c.Assert(d.PendingOrders, qt.Equals, 1)
	c.Assert(d.TotalRevenue, qt.Equals, "$39.45")
	c.Assert(d.Recent, qt.HasLen, 2)
}

func TestRegisterValidation(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, "", "")
	form := views.NewRegisterForm(f.deps)

	err := form.Validate(models.RegisterData{Username: "ab", Email: "nope", Password: "short", PasswordConfirm: "other"})
	fe, ok := err.(views.FormErrors)
	c.Assert(ok, qt.IsTrue)
	c.Assert(fe, qt.DeepEquals, views.FormErrors{
		"username":         "must be at least 3 characters",
		"email":            "invalid email address",
		"first_name":       "required",
		"last_name":        "required",
		"password":         "must be at least 8 characters",
		"password_confirm": "passwords do not match",
	})

	data := models.RegisterData{
		Username: "newbie", Email: "new@example.com", FirstName: "New", LastName: "Bie",
		Password: "longenough", PasswordConfirm: "longenough",
	}
	c.Assert(form.Validate(data), qt.IsNil)
	user, err := form.Submit(context.Background(), data)
	c.Assert(err, qt.IsNil)
	c.Assert(user.Email, qt.Equals, "new@example.com")
	c.Assert(f.deps.Auth.IsAuthenticated(), qt.IsFalse)

	_, err = form.Submit(context.Background(), data)
	c.Assert(errors.Is(err, errors.AlreadyExists), qt.IsTrue)
}

func TestProfileAndLogout(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, services.CustomerEmail, services.CustomerPassword)
	ctx := context.Background()
	form := views.NewProfileForm(f.deps)

	user, err := form.Open(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(user.Address, qt.Equals, "221B Baker Street, London")

	_, err = form.Submit(ctx, models.ProfileUpdate{FirstName: "", LastName: "X"})
	c.Assert(err, qt.ErrorMatches, "first_name: required")

	user, err = form.Submit(ctx, models.ProfileUpdate{FirstName: "Casey", LastName: "Jones", Address: "1 Main St"})
	c.Assert(err, qt.IsNil)
	c.Assert(user.Name(), qt.Equals, "Casey Jones")

	c.Assert(views.Logout(f.deps), qt.IsNil)
	c.Assert(views.RequireLogin(f.deps.Auth), qt.Equals, views.ErrLoginRequired)
	c.Assert(f.deps.Cart.Snapshot().Cart, qt.IsNil)
	_, err = form.Open(ctx)
	c.Assert(err, qt.Equals, views.ErrLoginRequired)
}

func TestMessage(t *testing.T) {
	c := qt.New(t)
	c.Assert(views.Message(errors.NotValidf("quantity -1")), qt.Equals, "Quantity -1 not valid")
	c.Assert(views.Message(errors.New("")), qt.Equals, "")
}

// slowFirstMe blocks the first profile load until released.
type slowFirstMe struct {
	state.AuthAPI
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (s *slowFirstMe) Me(ctx context.Context) (*models.User, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		close(s.started)
		<-s.release
		return &models.User{ID: 1, Username: "casey", FirstName: "Old"}, nil
	}
	return &models.User{ID: 1, Username: "casey", FirstName: "Casey"}, nil
}

func TestSupersededProfileLoadReturnsCurrentUser(t *testing.T) {
	c := qt.New(t)
	tokens := &api.MemoryTokenStore{}
	c.Assert(tokens.SetToken("token"), qt.IsNil)
	fake := &slowFirstMe{started: make(chan struct{}), release: make(chan struct{})}
	notes := &recorder{}
	form := views.NewProfileForm(views.Deps{
		Auth:     state.NewAuthStore(fake, tokens, nil),
		Notifier: notes,
	})

	type result struct {
		user *models.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := form.Open(context.Background())
		done <- result{user, err}
	}()
	<-fake.started

	second, err := form.Open(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(second.FirstName, qt.Equals, "Casey")

	close(fake.release)
	first := <-done
	c.Assert(first.err, qt.IsNil)
	c.Assert(first.user, qt.IsNotNil)
	c.Assert(first.user.FirstName, qt.Equals, "Casey")
	c.Assert(notes.Errors(), qt.HasLen, 0)
}

// heldList blocks every product list request until released.
type heldList struct {
	state.ProductAPI
	started chan string
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (h *heldList) List(ctx context.Context, q models.ProductQuery) (models.Page[models.Product], error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	h.started <- q.Search
	<-h.release
	return models.Page[models.Product]{}, nil
}

func (h *heldList) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestSearchInFlightIsNotSentAgain(t *testing.T) {
	c := qt.New(t)
	clk := testclock.NewClock(time.Now())
	fake := &heldList{started: make(chan string, 1), release: make(chan struct{})}
	list := views.NewProductList(views.Deps{
		Products: state.NewProductStore(fake, nil),
		Notifier: &recorder{},
	}, clk, 500*time.Millisecond)
	defer list.Close()

	list.SetSearch("ab")
	c.Assert(list.NeedsSearch("ab"), qt.IsTrue)
	c.Assert(clk.WaitAdvance(500*time.Millisecond, 5*time.Second, 1), qt.IsNil)
	c.Assert(<-fake.started, qt.Equals, "ab")

	// The store has not applied "ab" yet, but it was sent.
	c.Assert(list.Model().Search, qt.Equals, "")
	c.Assert(list.Issued().Search, qt.Equals, "ab")
	c.Assert(list.NeedsSearch("ab"), qt.IsFalse)
	c.Assert(list.NeedsSearch("abc"), qt.IsTrue)

	settled := make(chan bool)
	go func() { settled <- list.Settle() }()
	close(fake.release)
	c.Assert(<-settled, qt.IsFalse)
	c.Assert(fake.Calls(), qt.Equals, 1)
	c.Assert(list.Model().Search, qt.Equals, "ab")
}
