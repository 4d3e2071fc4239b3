package views

import (
	"context"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// ProductInput is the admin product form as typed.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Stock       string
	Category    string
	IsActive    bool
	// ImagePath optionally replaces the product image.
	ImagePath string
}

// InputFromProduct prefills the form for editing p.
func InputFromProduct(p models.Product) ProductInput {
	return ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       strconv.Itoa(p.Stock),
		Category:    strconv.FormatInt(p.Category, 10),
		IsActive:    p.IsActive,
	}
}

// Form validates the input and converts it to the wire form.
func (in ProductInput) Form() (models.ProductForm, error) {
	errs := FormErrors{}
	errs.required("name", in.Name)
	errs.required("description", in.Description)
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || price.IsNegative() {
		errs["price"] = "must be a non-negative amount"
	}
	stock, err := strconv.Atoi(strings.TrimSpace(in.Stock))
	if err != nil || stock < 0 {
		errs["stock"] = "must be a non-negative whole number"
	}
	category, err := strconv.ParseInt(strings.TrimSpace(in.Category), 10, 64)
	if err != nil || category < 1 {
		errs["category"] = "required"
	}
	if err := errs.err(); err != nil {
		return models.ProductForm{}, err
	}
	return models.ProductForm{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       price,
		Category:    category,
		Stock:       stock,
		IsActive:    in.IsActive,
		ImagePath:   in.ImagePath,
	}, nil
}

// AdminProductRow is a product in the admin list.
type AdminProductRow struct {
	ProductRow
	Active bool
	Status string
}

// AdminProductsModel is what the admin product screen shows.
type AdminProductsModel struct {
	Rows       []AdminProductRow
	Categories []CategoryOption
	Page       int
	TotalPages int
	Loading    bool
	Err        string
}

// AdminProducts manages the catalog.
type AdminProducts struct {
	deps Deps
}

func NewAdminProducts(deps Deps) *AdminProducts {
	return &AdminProducts{deps: deps}
}

// Open loads the first page and the categories together.
func (v *AdminProducts) Open(ctx context.Context) error {
	if err := RequireAdmin(v.deps.Auth); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := v.deps.Products.List(gctx, models.ProductQuery{Page: 1})
		return resync(err)
	})
	g.Go(func() error {
		_, err := v.deps.Products.Categories(gctx)
		return resync(err)
	})
	return v.deps.report(g.Wait())
}

func (v *AdminProducts) Model() AdminProductsModel {
	snap := v.deps.Products.Snapshot()
	m := AdminProductsModel{
		Page:       snap.CurrentPage,
		TotalPages: snap.TotalPages,
		Loading:    snap.Loading,
		Err:        snap.Err,
	}
	for _, p := range snap.Products {
		row := AdminProductRow{ProductRow: productRow(p), Active: p.IsActive, Status: "Inactive"}
		if p.IsActive {
			row.Status = "Active"
		}
		m.Rows = append(m.Rows, row)
	}
	for _, cat := range snap.Categories {
		m.Categories = append(m.Categories, CategoryOption{ID: strconv.FormatInt(cat.ID, 10), Label: cat.Name})
	}
	return m
}

// Product returns a listed product for editing.
func (v *AdminProducts) Product(id int64) (models.Product, error) {
	for _, p := range v.deps.Products.Snapshot().Products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, errors.NotFoundf("product %d", id)
}

// Save creates a product when id is 0 and updates it otherwise.
func (v *AdminProducts) Save(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	if err := RequireAdmin(v.deps.Auth); err != nil {
		return nil, err
	}
	form, err := in.Form()
	if err != nil {
		return nil, v.deps.report(err)
	}
	var (
		saved *models.Product
		msg   string
	)
	if id == 0 {
		saved, err = v.deps.Products.Create(ctx, form)
		msg = "Product created"
	} else {
		saved, err = v.deps.Products.Update(ctx, id, form)
		msg = "Product updated"
	}
	if err != nil {
		return nil, v.deps.report(err)
	}
	v.deps.Notifier.Success(msg)
	return saved, nil
}

func (v *AdminProducts) Delete(ctx context.Context, id int64) error {
	if err := RequireAdmin(v.deps.Auth); err != nil {
		return err
	}
	if err := v.deps.Products.Delete(ctx, id); err != nil {
		return v.deps.report(err)
	}
	v.deps.Notifier.Success("Product deleted")
	return nil
}

// AdminOrdersModel is what the admin order screen shows.
type AdminOrdersModel struct {
	Rows     []OrderRow
	Statuses []models.OrderStatus
	Loading  bool
	Err      string
}

// AdminOrders lists every order with a status control.
type AdminOrders struct {
	deps Deps
}

func NewAdminOrders(deps Deps) *AdminOrders {
	return &AdminOrders{deps: deps}
}

func (v *AdminOrders) Open(ctx context.Context) error {
	if err := RequireAdmin(v.deps.Auth); err != nil {
		return err
	}
	_, err := v.deps.Orders.ListAll(ctx)
	return v.deps.report(err)
}

func (v *AdminOrders) Model() AdminOrdersModel {
	snap := v.deps.Orders.Snapshot()
	m := AdminOrdersModel{Statuses: models.OrderStatuses, Loading: snap.Loading, Err: snap.Err}
	for _, o := range snap.AllOrders {
		m.Rows = append(m.Rows, orderRow(o))
	}
	return m
}

// SetStatus moves an order to any of the five statuses.
func (v *AdminOrders) SetStatus(ctx context.Context, id, status string) error {
	if err := RequireAdmin(v.deps.Auth); err != nil {
		return err
	}
	s := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if err := v.deps.Orders.UpdateStatus(ctx, id, s); err != nil {
		return v.deps.report(err)
	}
	v.deps.Notifier.Success("Order " + id + " is now " + string(s))
	return nil
}

// DashboardModel is what the admin dashboard shows.
type DashboardModel struct {
	TotalOrders   int
	TotalRevenue  string
	PendingOrders int
	Recent        []OrderRow
	Loading       bool
	Err           string
}

// AdminDashboard summarises the orders for display.
type AdminDashboard struct {
	deps Deps
}

func NewAdminDashboard(deps Deps) *AdminDashboard {
	return &AdminDashboard{deps: deps}
}

func (v *AdminDashboard) Open(ctx context.Context) error {
	if err := RequireAdmin(v.deps.Auth); err != nil {
		return err
	}
	_, err := v.deps.Orders.ListAll(ctx)
	return v.deps.report(err)
}

// Model computes the figures. Revenue is a display sum of the server's
// order totals, nothing is submitted from it.
func (v *AdminDashboard) Model() DashboardModel {
	snap := v.deps.Orders.Snapshot()
	m := DashboardModel{
		TotalOrders: len(snap.AllOrders),
		Loading:     snap.Loading,
		Err:         snap.Err,
	}
	revenue := decimal.Zero
	for i, o := range snap.AllOrders {
		revenue = revenue.Add(o.TotalAmount)
		if o.Status == models.OrderPending {
			m.PendingOrders++
		}
		if i < 5 {
			m.Recent = append(m.Recent, orderRow(o))
		}
	}
	m.TotalRevenue = Money(revenue)
	return m
}
