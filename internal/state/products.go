package state

import (
	"context"
	"slices"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/pkg/config"
)

// ProductAPI is the part of the gateway the product store uses.
type ProductAPI interface {
	List(ctx context.Context, q models.ProductQuery) (models.Page[models.Product], error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Featured(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, form models.ProductForm) (*models.Product, error)
	Update(ctx context.Context, id int64, form models.ProductForm) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
}

// ProductState is a snapshot of the product store.
type ProductState struct {
	Products    []models.Product
	Count       int
	TotalPages  int
	CurrentPage int
	Query       models.ProductQuery
	Current     *models.Product
	Categories  []models.Category
	Loading     bool
	Err         string
}

// ProductStore caches the catalog page being browsed, the product being
// viewed and the categories.
type ProductStore struct {
	core
	api   ProductAPI
	state ProductState
}

func NewProductStore(api ProductAPI, m *metrics.AppMetrics) *ProductStore {
	s := &ProductStore{api: api}
	s.init("products", m)
	s.state.CurrentPage = 1
	return s
}

// Snapshot returns a copy of the current state.
func (s *ProductStore) Snapshot() ProductState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Products = slices.Clone(s.state.Products)
	out.Categories = slices.Clone(s.state.Categories)
	if s.state.Current != nil {
		p := *s.state.Current
		out.Current = &p
	}
	out.Loading = s.loading > 0
	out.Err = s.err
	return out
}

// TotalPages returns how many pages of PageSize products count spans.
func TotalPages(count int) int {
	return (count + config.PageSize - 1) / config.PageSize
}

// List fetches one page of the catalog.
func (s *ProductStore) List(ctx context.Context, q models.ProductQuery) (models.Page[models.Product], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	return read(ctx, &s.core, "list", func(ctx context.Context) (models.Page[models.Product], error) {
		return s.api.List(ctx, q)
	}, func(page models.Page[models.Product]) {
		s.state.Products = page.Results
		s.state.Count = page.Count
		s.state.TotalPages = TotalPages(page.Count)
		s.state.CurrentPage = q.Page
		s.state.Query = q
	})
}

// Featured replaces the product list with the featured products.
func (s *ProductStore) Featured(ctx context.Context) ([]models.Product, error) {
	return read(ctx, &s.core, "list", s.api.Featured, func(products []models.Product) {
		s.state.Products = products
		s.state.Count = len(products)
		s.state.TotalPages = TotalPages(len(products))
		s.state.CurrentPage = 1
	})
}

// Get loads the product being viewed.
func (s *ProductStore) Get(ctx context.Context, id int64) (*models.Product, error) {
	return read(ctx, &s.core, "current", func(ctx context.Context) (*models.Product, error) {
		return s.api.Get(ctx, id)
	}, func(p *models.Product) {
		s.state.Current = p
	})
}

// ClearCurrent forgets the product being viewed.
func (s *ProductStore) ClearCurrent() {
	s.mu.Lock()
	s.state.Current = nil
	s.supersede("current")
	s.mu.Unlock()
	s.notify()
}

// Categories loads the category list.
func (s *ProductStore) Categories(ctx context.Context) ([]models.Category, error) {
	return read(ctx, &s.core, "categories", s.api.Categories, func(cats []models.Category) {
		s.state.Categories = cats
	})
}

// Create adds a product, then re-fetches the last listed page.
func (s *ProductStore) Create(ctx context.Context, form models.ProductForm) (*models.Product, error) {
	var created *models.Product
	err := s.mutate(ctx, func(ctx context.Context) (err error) {
		created, err = s.api.Create(ctx, form)
		return err
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return created, errors.Trace(s.relist(ctx))
}

// Update replaces a product, then re-fetches the last listed page.
func (s *ProductStore) Update(ctx context.Context, id int64, form models.ProductForm) (*models.Product, error) {
	var updated *models.Product
	err := s.mutate(ctx, func(ctx context.Context) (err error) {
		updated, err = s.api.Update(ctx, id, form)
		return err
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return updated, errors.Trace(s.relist(ctx))
}

// Delete removes a product, then re-fetches the last listed page.
func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	err := s.mutate(ctx, func(ctx context.Context) error {
		return s.api.Delete(ctx, id)
	})
	if err != nil {
		return errors.Trace(err)
	}
	s.mu.Lock()
	if s.state.Current != nil && s.state.Current.ID == id {
		s.state.Current = nil
		s.supersede("current")
	}
	s.mu.Unlock()
	return errors.Trace(s.relist(ctx))
}

func (s *ProductStore) relist(ctx context.Context) error {
	s.mu.Lock()
	q := s.state.Query
	s.mu.Unlock()
	_, err := s.List(ctx, q)
	return resync(err)
}
