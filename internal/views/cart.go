package views

import (
	"context"

	"github.com/juju/errors"
)

// CartRow is one line of the cart screen.
type CartRow struct {
	ItemID       int64
	ProductID    int64
	Name         string
	Price        string
	Quantity     int
	Stock        int
	LineTotal    string
	CanIncrement bool
	CanDecrement bool
}

// CartModel is what the cart screen shows. Totals are the server's.
type CartModel struct {
	Rows       []CartRow
	TotalItems int
	Subtotal   string
	Shipping   string
	Total      string
	Empty      bool
	Loading    bool
	Err        string
}

// CartView renders the cart and dispatches quantity changes as absolute
// quantities.
type CartView struct {
	deps Deps
}

func NewCartView(deps Deps) *CartView {
	return &CartView{deps: deps}
}

// Open re-fetches the cart.
func (v *CartView) Open(ctx context.Context) error {
	if err := RequireLogin(v.deps.Auth); err != nil {
		return err
	}
	_, err := v.deps.Cart.Fetch(ctx)
	return v.deps.report(err)
}

// Model describes the cart screen.
func (v *CartView) Model() CartModel {
	snap := v.deps.Cart.Snapshot()
	m := CartModel{Loading: snap.Loading, Err: snap.Err, Empty: snap.Cart.IsEmpty()}
	if snap.Cart == nil {
		return m
	}
	m.TotalItems = snap.Cart.TotalItems
	m.Subtotal = Money(snap.Cart.TotalPrice)
	m.Shipping = "Free"
	m.Total = Money(snap.Cart.TotalPrice)
	for _, item := range snap.Cart.Items {
		m.Rows = append(m.Rows, CartRow{
			ItemID:       item.ID,
			ProductID:    item.Product.ID,
			Name:         item.Product.Name,
			Price:        Money(item.Product.Price),
			Quantity:     item.Quantity,
			Stock:        item.Product.Stock,
			LineTotal:    Money(item.TotalPrice),
			CanIncrement: item.Quantity < item.Product.Stock,
			CanDecrement: item.Quantity > 1,
		})
	}
	return m
}

func (v *CartView) row(itemID int64) (CartRow, error) {
	for _, row := range v.Model().Rows {
		if row.ItemID == itemID {
			return row, nil
		}
	}
	return CartRow{}, errors.NotFoundf("cart item %d", itemID)
}

// Increment adds one to an item, up to the product's stock.
func (v *CartView) Increment(ctx context.Context, itemID int64) error {
	row, err := v.row(itemID)
	if err != nil {
		return v.deps.report(err)
	}
	if !row.CanIncrement {
		return v.deps.report(errors.NotValidf("quantity above stock of %d", row.Stock))
	}
	return v.deps.report(v.deps.Cart.Update(ctx, itemID, row.Quantity+1))
}

// Decrement takes one from an item. The control is disabled at 1; use
// Remove to drop the item.
func (v *CartView) Decrement(ctx context.Context, itemID int64) error {
	row, err := v.row(itemID)
	if err != nil {
		return v.deps.report(err)
	}
	if !row.CanDecrement {
		return v.deps.report(errors.NotValidf("quantity below 1"))
	}
	return v.deps.report(v.deps.Cart.Update(ctx, itemID, row.Quantity-1))
}

func (v *CartView) Remove(ctx context.Context, itemID int64) error {
	if err := v.deps.Cart.Remove(ctx, itemID); err != nil {
		return v.deps.report(err)
	}
	v.deps.Notifier.Success("Item removed from cart")
	return nil
}

func (v *CartView) Clear(ctx context.Context) error {
	if err := v.deps.Cart.Clear(ctx); err != nil {
		return v.deps.report(err)
	}
	v.deps.Notifier.Success("Cart cleared")
	return nil
}
