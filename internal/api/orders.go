package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// OrderService covers customer orders and the admin order list.
type OrderService struct {
	c *Client
}

// List returns the orders of the logged-in user.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, "/orders/")
}

// ListAll returns the orders of every user. Admin only.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, "/orders/admin/all/")
}

func (s *OrderService) list(ctx context.Context, path string) ([]models.Order, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, errors.Trace(err)
	}
	page, err := decodeList[models.Order](raw)
	return page.Results, errors.Trace(err)
}

// Create places an order from the current cart.
func (s *OrderService) Create(ctx context.Context, req models.OrderCreate) (*models.Order, error) {
	var out models.Order
	if err := s.c.do(ctx, http.MethodPost, "/orders/create/", nil, req, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	var out models.Order
	if err := s.c.do(ctx, http.MethodGet, orderPath(id), nil, nil, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out, nil
}

// Cancel asks the backend to cancel an order. Whether that is allowed is
// decided server-side.
func (s *OrderService) Cancel(ctx context.Context, id string) error {
	return errors.Trace(s.c.do(ctx, http.MethodPost, orderPath(id)+"cancel/", nil, nil, nil))
}

// Receipt opens the PDF receipt of an order. The caller must close the
// returned body.
func (s *OrderService) Receipt(ctx context.Context, id string) (io.ReadCloser, string, error) {
	path := orderPath(id) + "receipt-pdf/"
	req, err := s.c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	req.Header.Set("Accept", "application/pdf")
	resp, err := s.c.send(req, routeOf(path))
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// UpdateStatus moves an order to status. Admin only.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var out models.Order
	req := models.OrderStatusUpdate{Status: status}
	if err := s.c.do(ctx, http.MethodPut, "/orders/admin/"+url.PathEscape(id)+"/status/", nil, req, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out, nil
}

func orderPath(id string) string {
	return "/orders/" + url.PathEscape(id) + "/"
}
