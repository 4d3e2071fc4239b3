package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// Summary is what the review step shows. Totals are the server's.
type Summary struct {
	Items         []models.CartItem
	Subtotal      decimal.Decimal
	ShippingCost  decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Shipping      ShippingDetails
	MethodLabel   string
	Authorization string
}

// Summary describes the order about to be placed.
func (c *Checkout) Summary() Summary {
	cart := c.cfg.Cart.Snapshot().Cart
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{
		Subtotal:     decimal.Zero,
		ShippingCost: decimal.Zero,
		Tax:          decimal.Zero,
		Total:        decimal.Zero,
		Shipping:     c.shipping,
		MethodLabel:  c.method.Label(),
	}
	if cart != nil {
		s.Items = cart.Items
		s.Subtotal = cart.TotalPrice
		s.Total = cart.TotalPrice
	}
	if c.auth != nil {
		s.Authorization = MaskID(c.auth.IntentID)
	}
	return s
}

// MaskID hides all but the last eight characters of an id.
func MaskID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return "..." + id[len(id)-8:]
}
