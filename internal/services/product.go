package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/pkg/config"
)

// featuredCount is the number of products on the home screen.
const featuredCount = 4

// ProductService handles product-related operations
type ProductService struct {
	store *Store
}

// NewProductService creates a new product service
func NewProductService(store *Store) *ProductService {
	return &ProductService{store: store}
}

// ListProducts returns one page of products. Inactive products are only
// listed for admins.
func (s *ProductService) ListProducts(q models.ProductQuery, includeInactive bool) models.Page[models.Product] {
	s.store.mu.Lock()
	var matches []models.Product
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, p := range s.store.products {
		if !p.IsActive && !includeInactive {
			continue
		}
		if q.Category != "" && strconv.FormatInt(p.Category, 10) != q.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		matches = append(matches, *p)
	}
	s.store.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	page := q.Page
	if page < 1 {
		page = 1
	}
	out := models.Page[models.Product]{Count: len(matches), Results: []models.Product{}}
	start := (page - 1) * config.PageSize
	if start < len(matches) {
		end := min(start+config.PageSize, len(matches))
		out.Results = matches[start:end]
	}
	if start+config.PageSize < len(matches) {
		next := fmt.Sprintf("?page=%d", page+1)
		out.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("?page=%d", page-1)
		out.Previous = &prev
	}
	return out
}

// GetProduct returns a product by id
func (s *ProductService) GetProduct(id int64) (*models.Product, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	p, ok := s.store.products[id]
	if !ok {
		return nil, errors.NotFoundf("product %d", id)
	}
	out := *p
	return &out, nil
}

// Categories returns all categories ordered by name.
func (s *ProductService) Categories() []models.Category {
	s.store.mu.Lock()
	out := make([]models.Category, 0, len(s.store.categories))
	for _, c := range s.store.categories {
		out = append(out, *c)
	}
	s.store.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Featured returns the newest active products that are in stock.
func (s *ProductService) Featured() []models.Product {
	s.store.mu.Lock()
	var out []models.Product
	for _, p := range s.store.products {
		if p.IsActive && p.Stock > 0 {
			out = append(out, *p)
		}
	}
	s.store.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > featuredCount {
		out = out[:featuredCount]
	}
	return out
}

// CreateProduct adds a product on behalf of an admin.
func (s *ProductService) CreateProduct(form models.ProductForm, by models.User) (*models.Product, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	cat, ok := s.store.categories[form.Category]
	if !ok {
		return nil, errors.NotValidf("category %d", form.Category)
	}
	p := &models.Product{
		ID:            s.store.id(),
		CreatedBy:     by.ID,
		CreatedByName: by.Username,
		CreatedAt:     s.store.now(),
	}
	applyForm(p, form, cat, s.store.now())
	s.store.products[p.ID] = p
	cat.ProductsCount++
	out := *p
	return &out, nil
}

// UpdateProduct replaces the editable fields of a product. The image is kept
// unless a new one was uploaded.
func (s *ProductService) UpdateProduct(id int64, form models.ProductForm) (*models.Product, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	p, ok := s.store.products[id]
	if !ok {
		return nil, errors.NotFoundf("product %d", id)
	}
	cat, ok := s.store.categories[form.Category]
	if !ok {
		return nil, errors.NotValidf("category %d", form.Category)
	}
	if old, ok := s.store.categories[p.Category]; ok && old.ID != cat.ID {
		old.ProductsCount--
		cat.ProductsCount++
	}
	applyForm(p, form, cat, s.store.now())
	out := *p
	return &out, nil
}

// DeleteProduct removes a product. Existing orders keep their snapshot.
func (s *ProductService) DeleteProduct(id int64) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	p, ok := s.store.products[id]
	if !ok {
		return errors.NotFoundf("product %d", id)
	}
	if cat, ok := s.store.categories[p.Category]; ok {
		cat.ProductsCount--
	}
	delete(s.store.products, id)
	for _, cart := range s.store.carts {
		kept := cart.lines[:0]
		for _, line := range cart.lines {
			if line.productID != id {
				kept = append(kept, line)
			}
		}
		cart.lines = kept
	}
	return nil
}

func validateForm(form models.ProductForm) error {
	switch {
	case strings.TrimSpace(form.Name) == "":
		return errors.NotValidf("empty product name")
	case strings.TrimSpace(form.Description) == "":
		return errors.NotValidf("empty product description")
	case form.Price.IsNegative():
		return errors.NotValidf("negative price")
	case form.Stock < 0:
		return errors.NotValidf("negative stock")
	}
	return nil
}

func applyForm(p *models.Product, form models.ProductForm, cat *models.Category, now time.Time) {
	p.Name = strings.TrimSpace(form.Name)
	p.Description = strings.TrimSpace(form.Description)
	p.Price = form.Price.Round(2)
	p.Category = cat.ID
	p.CategoryName = cat.Name
	p.Stock = form.Stock
	p.IsActive = form.IsActive
	p.IsInStock = form.Stock > 0
	if form.ImagePath != "" {
		p.Image = "/media/products/" + form.ImagePath
	}
	p.UpdatedAt = now
}
