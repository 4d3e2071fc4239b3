package views

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/download"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// OrderLine is one item of an order.
type OrderLine struct {
	Name      string
	Quantity  int
	Price     string
	LineTotal string
}

// OrderRow is an order as the history and confirmation screens show it.
type OrderRow struct {
	ID              string
	CreatedAt       time.Time
	Customer        string
	Status          models.OrderStatus
	StatusLabel     string
	StatusTone      Tone
	PaymentStatus   string
	PaymentTone     Tone
	PaymentMethod   string
	ShippingAddress string
	Total           string
	Lines           []OrderLine
	CanCancel       bool
}

func orderRow(o models.Order) OrderRow {
	row := OrderRow{
		ID:              o.ID,
		CreatedAt:       o.CreatedAt,
		Customer:        o.UserEmail,
		Status:          o.Status,
		StatusLabel:     Title(string(o.Status)),
		StatusTone:      StatusTone(o.Status),
		PaymentStatus:   Title(string(o.PaymentStatus)),
		PaymentTone:     PaymentTone(o.PaymentStatus),
		PaymentMethod:   PaymentMethodLabel(o.PaymentMethod),
		ShippingAddress: o.ShippingAddress,
		Total:           Money(o.TotalAmount),
		CanCancel:       o.Status == models.OrderPending || o.Status == models.OrderProcessing,
	}
	for _, item := range o.Items {
		row.Lines = append(row.Lines, OrderLine{
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			Price:     Money(item.Price),
			LineTotal: Money(item.TotalPrice),
		})
	}
	return row
}

// OrderHistoryModel is what the order history screen shows.
type OrderHistoryModel struct {
	Rows    []OrderRow
	Empty   bool
	Loading bool
	Err     string
}

// OrderHistory lists the user's orders.
type OrderHistory struct {
	deps        Deps
	downloadDir string
}

func NewOrderHistory(deps Deps, downloadDir string) *OrderHistory {
	return &OrderHistory{deps: deps, downloadDir: downloadDir}
}

func (v *OrderHistory) Open(ctx context.Context) error {
	if err := RequireLogin(v.deps.Auth); err != nil {
		return err
	}
	_, err := v.deps.Orders.List(ctx)
	return v.deps.report(err)
}

func (v *OrderHistory) Model() OrderHistoryModel {
	snap := v.deps.Orders.Snapshot()
	m := OrderHistoryModel{Loading: snap.Loading, Err: snap.Err, Empty: len(snap.Orders) == 0 && !snap.Loading}
	for _, o := range snap.Orders {
		m.Rows = append(m.Rows, orderRow(o))
	}
	return m
}

// Cancel asks the backend to cancel an order. Whether it may is the
// backend's decision.
func (v *OrderHistory) Cancel(ctx context.Context, id string) error {
	return cancelOrder(ctx, v.deps, id)
}

// DownloadReceipt saves the receipt of an order and returns its path.
func (v *OrderHistory) DownloadReceipt(ctx context.Context, id string) (string, error) {
	return downloadReceipt(ctx, v.deps, v.downloadDir, id)
}

// OrderConfirmationModel is what the confirmation screen shows.
type OrderConfirmationModel struct {
	Order   *OrderRow
	Loading bool
	Err     string
}

// OrderConfirmation shows one order, typically right after checkout.
type OrderConfirmation struct {
	deps        Deps
	downloadDir string
}

func NewOrderConfirmation(deps Deps, downloadDir string) *OrderConfirmation {
	return &OrderConfirmation{deps: deps, downloadDir: downloadDir}
}

func (v *OrderConfirmation) Open(ctx context.Context, id string) error {
	if err := RequireLogin(v.deps.Auth); err != nil {
		return err
	}
	_, err := v.deps.Orders.Get(ctx, id)
	return v.deps.report(err)
}

func (v *OrderConfirmation) Model() OrderConfirmationModel {
	snap := v.deps.Orders.Snapshot()
	m := OrderConfirmationModel{Loading: snap.Loading, Err: snap.Err}
	if snap.Current != nil {
		row := orderRow(*snap.Current)
		m.Order = &row
	}
	return m
}

func (v *OrderConfirmation) Cancel(ctx context.Context, id string) error {
	return cancelOrder(ctx, v.deps, id)
}

func (v *OrderConfirmation) DownloadReceipt(ctx context.Context, id string) (string, error) {
	return downloadReceipt(ctx, v.deps, v.downloadDir, id)
}

func cancelOrder(ctx context.Context, deps Deps, id string) error {
	if err := deps.Orders.Cancel(ctx, id); err != nil {
		return deps.report(err)
	}
	deps.Notifier.Success(fmt.Sprintf("Order %s cancelled", id))
	return nil
}

// downloadReceipt fetches the receipt and stores it through a temporary
// file that is always released.
func downloadReceipt(ctx context.Context, deps Deps, dir, id string) (string, error) {
	body, _, err := deps.Orders.Receipt(ctx, id)
	if err != nil {
		return "", deps.report(err)
	}
	defer body.Close()
	path, err := download.SaveReceipt(body, dir, id)
	if err != nil {
		return "", deps.report(errors.Annotate(err, "saving receipt"))
	}
	deps.Notifier.Success("Receipt saved to " + path)
	return path, nil
}
