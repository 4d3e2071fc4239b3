package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// ProductService covers the catalog and its admin operations.
type ProductService struct {
	c *Client
}

// List returns one page of products matching q.
func (s *ProductService) List(ctx context.Context, q models.ProductQuery) (models.Page[models.Product], error) {
	query := url.Values{}
	if q.Page > 1 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodGet, "/products/", query, nil, &raw); err != nil {
		return models.Page[models.Product]{}, errors.Trace(err)
	}
	return decodeList[models.Product](raw)
}

// Get returns a single product.
func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	var out models.Product
	if err := s.c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/", id), nil, nil, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out, nil
}

// Categories returns every category.
func (s *ProductService) Categories(ctx context.Context) ([]models.Category, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodGet, "/products/categories/", nil, nil, &raw); err != nil {
		return nil, errors.Trace(err)
	}
	page, err := decodeList[models.Category](raw)
	return page.Results, errors.Trace(err)
}

// Featured returns the products shown on the home screen.
func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodGet, "/products/featured/", nil, nil, &raw); err != nil {
		return nil, errors.Trace(err)
	}
	page, err := decodeList[models.Product](raw)
	return page.Results, errors.Trace(err)
}

// Create adds a product. Admin only.
func (s *ProductService) Create(ctx context.Context, form models.ProductForm) (*models.Product, error) {
	return s.submit(ctx, http.MethodPost, "/products/", form)
}

// Update replaces a product. Admin only.
func (s *ProductService) Update(ctx context.Context, id int64, form models.ProductForm) (*models.Product, error) {
	return s.submit(ctx, http.MethodPut, fmt.Sprintf("/products/%d/", id), form)
}

// Delete removes a product. Admin only.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return errors.Trace(s.c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d/", id), nil, nil, nil))
}

func (s *ProductService) submit(ctx context.Context, method, path string, form models.ProductForm) (*models.Product, error) {
	body, contentType, err := encodeProductForm(form)
	if err != nil {
		return nil, errors.Trace(err)
	}
	req, err := s.c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := s.c.send(req, routeOf(path))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer resp.Body.Close()
	var out models.Product
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Annotate(err, "decoding product")
	}
	return &out, nil
}

// encodeProductForm renders form as multipart/form-data. The image part is
// only present when an image file was chosen.
func encodeProductForm(form models.ProductForm) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", form.Name},
		{"description", form.Description},
		{"price", form.Price.StringFixed(2)},
		{"category", strconv.FormatInt(form.Category, 10)},
		{"stock", strconv.Itoa(form.Stock)},
		{"is_active", strconv.FormatBool(form.IsActive)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", errors.Trace(err)
		}
	}
	if form.ImagePath != "" {
		f, err := os.Open(form.ImagePath)
		if err != nil {
			return nil, "", errors.Annotate(err, "opening product image")
		}
		defer f.Close()
		part, err := w.CreateFormFile("image", filepath.Base(form.ImagePath))
		if err != nil {
			return nil, "", errors.Trace(err)
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, "", errors.Annotate(err, "reading product image")
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Trace(err)
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeList accepts either a bare JSON array or a paginated envelope.
func decodeList[T any](raw json.RawMessage) (models.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return models.Page[T]{}, errors.Annotate(err, "decoding list")
		}
		return models.Page[T]{Count: len(items), Results: items}, nil
	}
	var page models.Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return models.Page[T]{}, errors.Annotate(err, "decoding page")
	}
	return page, nil
}
