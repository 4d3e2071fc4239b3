package api

import (
	"context"
	"net/http"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// PaymentService requests card authorization intents from the backend.
type PaymentService struct {
	c *Client
}

// CreateIntent returns a short-lived client secret for confirming a card
// payment of req.Amount. Every call creates a new intent.
func (s *PaymentService) CreateIntent(ctx context.Context, req models.PaymentIntentRequest) (*models.PaymentIntent, error) {
	var out models.PaymentIntent
	if err := s.c.do(ctx, http.MethodPost, "/payments/create-intent/", nil, req, &out); err != nil {
		return nil, errors.Trace(err)
	}
	if out.ClientSecret == "" {
		return nil, errors.New("payment intent response carried no client secret")
	}
	return &out, nil
}
