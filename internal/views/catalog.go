package views

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/SigNoz/ecommerce-go-storefront/internal/debounce"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
)

// ProductRow is one product in a listing.
type ProductRow struct {
	ID       int64
	Name     string
	Category string
	Price    string
	Stock    int
	InStock  bool
	Image    string
}

func productRow(p models.Product) ProductRow {
	return ProductRow{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.CategoryName,
		Price:    Money(p.Price),
		Stock:    p.Stock,
		InStock:  p.IsInStock && p.Stock > 0,
		Image:    p.Image,
	}
}

// CategoryOption is an entry of the category filter.
type CategoryOption struct {
	ID    string
	Label string
}

// ProductListModel is what the catalog screen shows.
type ProductListModel struct {
	Rows       []ProductRow
	Count      int
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	Search     string
	Category   string
	Categories []CategoryOption
	Loading    bool
	Empty      bool
	Err        string
}

// ProductList is the catalog screen. Search and category changes are
// debounced into one list request.
type ProductList struct {
	deps   Deps
	filter *debounce.Debouncer[models.ProductQuery]

	mu      sync.Mutex
	ctx     context.Context
	pending models.ProductQuery
	issued  models.ProductQuery

	// busy is held while a settled filter change is being fetched.
	busy sync.Mutex
}

// NewProductList returns a catalog view whose filters settle after delay.
func NewProductList(deps Deps, clk clock.Clock, delay time.Duration) *ProductList {
	v := &ProductList{deps: deps, ctx: context.Background()}
	v.filter = debounce.New(clk, delay, v.apply)
	return v
}

// Open loads the categories and the first page together. ctx also scopes
// the requests of later filter changes.
func (v *ProductList) Open(ctx context.Context) error {
	v.mu.Lock()
	v.ctx = ctx
	v.pending = models.ProductQuery{Page: 1}
	v.issued = v.pending
	q := v.pending
	v.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := v.deps.Products.Categories(gctx)
		return resync(err)
	})
	g.Go(func() error {
		_, err := v.deps.Products.List(gctx, q)
		return resync(err)
	})
	return v.deps.report(g.Wait())
}

// SetSearch changes the search text. The request is issued once the
// filters have been quiet for the debounce delay.
func (v *ProductList) SetSearch(text string) {
	v.mu.Lock()
	v.pending.Search = text
	v.pending.Page = 1
	q := v.pending
	v.mu.Unlock()
	v.filter.Trigger(q)
}

// SetCategory changes the category filter; "" means all categories.
func (v *ProductList) SetCategory(id string) {
	v.mu.Lock()
	v.pending.Category = id
	v.pending.Page = 1
	q := v.pending
	v.mu.Unlock()
	v.filter.Trigger(q)
}

// Settle issues a pending filter change now and waits for a filter change
// already being fetched. It reports whether there was a pending one.
func (v *ProductList) Settle() bool {
	fired := v.filter.Flush()
	v.busy.Lock()
	v.busy.Unlock()
	return fired
}

// Issued returns the last query sent for this screen.
func (v *ProductList) Issued() models.ProductQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.issued
}

// NeedsSearch reports whether searching for text would send a request:
// it differs from the last search sent or a filter change is pending.
func (v *ProductList) NeedsSearch(text string) bool {
	return v.Pending() || v.Issued().Search != text
}

// Pending reports whether a filter change is waiting to settle.
func (v *ProductList) Pending() bool {
	return v.filter.Pending()
}

// SetPage fetches page n of the current filters immediately.
func (v *ProductList) SetPage(ctx context.Context, n int) error {
	total := v.deps.Products.Snapshot().TotalPages
	if n < 1 || (total > 0 && n > total) {
		return errors.NotValidf("page %d", n)
	}
	v.mu.Lock()
	v.pending.Page = n
	v.issued = v.pending
	q := v.pending
	v.mu.Unlock()
	_, err := v.deps.Products.List(ctx, q)
	return v.deps.report(err)
}

// Close drops a pending filter change.
func (v *ProductList) Close() {
	v.filter.Stop()
}

func (v *ProductList) apply(q models.ProductQuery) {
	v.busy.Lock()
	defer v.busy.Unlock()
	v.mu.Lock()
	ctx := v.ctx
	v.issued = q
	v.mu.Unlock()
	logger.Debugf("filters settled: search=%q category=%q", q.Search, q.Category)
	_, err := v.deps.Products.List(ctx, q)
	_ = v.deps.report(err)
}

// AddToCart puts one of a product in the cart. Anonymous users are told
// to log in and nothing is sent.
func (v *ProductList) AddToCart(ctx context.Context, productID int64) error {
	return addToCart(ctx, v.deps, productID, 1)
}

// Model describes the catalog screen.
func (v *ProductList) Model() ProductListModel {
	snap := v.deps.Products.Snapshot()
	m := ProductListModel{
		Count:      snap.Count,
		Page:       snap.CurrentPage,
		TotalPages: snap.TotalPages,
		Search:     snap.Query.Search,
		Category:   snap.Query.Category,
		Loading:    snap.Loading,
		Empty:      len(snap.Products) == 0 && !snap.Loading,
		Err:        snap.Err,
	}
	m.HasPrev = m.Page > 1
	m.HasNext = m.Page < m.TotalPages
	for _, p := range snap.Products {
		m.Rows = append(m.Rows, productRow(p))
	}
	m.Categories = append(m.Categories, CategoryOption{ID: "", Label: "All Categories"})
	for _, cat := range snap.Categories {
		m.Categories = append(m.Categories, CategoryOption{
			ID:    strconv.FormatInt(cat.ID, 10),
			Label: fmt.Sprintf("%s (%d)", cat.Name, cat.ProductsCount),
		})
	}
	return m
}

func addToCart(ctx context.Context, deps Deps, productID int64, qty int) error {
	if err := RequireLogin(deps.Auth); err != nil {
		deps.Notifier.Error("Please login to add items to cart")
		return err
	}
	if err := deps.Cart.Add(ctx, productID, qty); err != nil {
		return deps.report(err)
	}
	deps.Notifier.Success("Added to cart")
	return nil
}

// resync treats a superseded read as success.
func resync(err error) error {
	if errors.Is(err, state.ErrStale) {
		return nil
	}
	return err
}

// ProductDetailModel is what the product screen shows.
type ProductDetailModel struct {
	Product      *ProductRow
	Description  string
	Quantity     int
	CanIncrement bool
	CanDecrement bool
	CanAdd       bool
	LinePrice    string
	Loading      bool
	Err          string
}

// ProductDetail is the product screen with its quantity selector.
type ProductDetail struct {
	deps Deps

	mu       sync.Mutex
	quantity int
}

func NewProductDetail(deps Deps) *ProductDetail {
	return &ProductDetail{deps: deps, quantity: 1}
}

// Open loads a product and resets the quantity to 1.
func (v *ProductDetail) Open(ctx context.Context, id int64) error {
	v.mu.Lock()
	v.quantity = 1
	v.mu.Unlock()
	_, err := v.deps.Products.Get(ctx, id)
	return v.deps.report(err)
}

// Close forgets the product.
func (v *ProductDetail) Close() {
	v.deps.Products.ClearCurrent()
}

// stock of the product on screen, or 0.
func (v *ProductDetail) stock() int {
	if p := v.deps.Products.Snapshot().Current; p != nil {
		return p.Stock
	}
	return 0
}

// SetQuantity sets the quantity, clamped to [1, stock].
func (v *ProductDetail) SetQuantity(n int) int {
	stock := v.stock()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.quantity = clamp(n, 1, max(stock, 1))
	return v.quantity
}

func (v *ProductDetail) Increment() int {
	v.mu.Lock()
	n := v.quantity + 1
	v.mu.Unlock()
	return v.SetQuantity(n)
}

func (v *ProductDetail) Decrement() int {
	v.mu.Lock()
	n := v.quantity - 1
	v.mu.Unlock()
	return v.SetQuantity(n)
}

// AddToCart adds the selected quantity.
func (v *ProductDetail) AddToCart(ctx context.Context) error {
	p := v.deps.Products.Snapshot().Current
	if p == nil {
		return errors.NotFoundf("product")
	}
	if p.Stock < 1 {
		v.deps.Notifier.Error("Product is out of stock")
		return errors.NotValidf("adding out of stock product")
	}
	v.mu.Lock()
	qty := v.quantity
	v.mu.Unlock()
	return addToCart(ctx, v.deps, p.ID, qty)
}

// Model describes the product screen.
func (v *ProductDetail) Model() ProductDetailModel {
	snap := v.deps.Products.Snapshot()
	v.mu.Lock()
	qty := v.quantity
	v.mu.Unlock()
	m := ProductDetailModel{Quantity: qty, Loading: snap.Loading, Err: snap.Err}
	if p := snap.Current; p != nil {
		row := productRow(*p)
		m.Product = &row
		m.Description = p.Description
		m.CanIncrement = qty < p.Stock
		m.CanDecrement = qty > 1
		m.CanAdd = p.Stock > 0
		m.LinePrice = Money(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return m
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

// Home shows the featured products.
type Home struct {
	deps Deps
}

func NewHome(deps Deps) *Home {
	return &Home{deps: deps}
}

func (v *Home) Open(ctx context.Context) error {
	_, err := v.deps.Products.Featured(ctx)
	return v.deps.report(err)
}

// Featured returns the rows of the featured products.
func (v *Home) Featured() []ProductRow {
	var rows []ProductRow
	for _, p := range v.deps.Products.Snapshot().Products {
		rows = append(rows, productRow(p))
	}
	return rows
}
