package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// CartService covers the cart of the logged-in user.
type CartService struct {
	c *Client
}

func (s *CartService) Get(ctx context.Context) (*models.Cart, error) {
	var out models.Cart
	if err := s.c.do(ctx, http.MethodGet, "/cart/", nil, nil, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return &out, nil
}

func (s *CartService) Add(ctx context.Context, productID int64, quantity int) error {
	req := models.AddToCartRequest{ProductID: productID, Quantity: quantity}
	return errors.Trace(s.c.do(ctx, http.MethodPost, "/cart/add/", nil, req, nil))
}

// Update sets the absolute quantity of a cart item.
func (s *CartService) Update(ctx context.Context, itemID int64, quantity int) error {
	req := models.UpdateCartItemRequest{Quantity: quantity}
	return errors.Trace(s.c.do(ctx, http.MethodPut, fmt.Sprintf("/cart/update/%d/", itemID), nil, req, nil))
}

func (s *CartService) Remove(ctx context.Context, itemID int64) error {
	return errors.Trace(s.c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/remove/%d/", itemID), nil, nil, nil))
}

func (s *CartService) Clear(ctx context.Context) error {
	return errors.Trace(s.c.do(ctx, http.MethodDelete, "/cart/clear/", nil, nil, nil))
}
