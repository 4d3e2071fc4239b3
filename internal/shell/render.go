package shell

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/juju/ansiterm"

	"github.com/SigNoz/ecommerce-go-storefront/internal/views"
)

var (
	success = ansiterm.Foreground(ansiterm.Green)
	failure = ansiterm.Foreground(ansiterm.BrightRed)
	warning = ansiterm.Foreground(ansiterm.Yellow)
	heading = ansiterm.Styles(ansiterm.Bold)
)

var toneColor = map[views.Tone]*ansiterm.Context{
	views.ToneWarning: ansiterm.Foreground(ansiterm.Yellow),
	views.ToneInfo:    ansiterm.Foreground(ansiterm.BrightBlue),
	views.TonePrimary: ansiterm.Foreground(ansiterm.Cyan),
	views.ToneSuccess: ansiterm.Foreground(ansiterm.Green),
	views.ToneDanger:  ansiterm.Foreground(ansiterm.BrightRed),
	views.ToneMuted:   ansiterm.Foreground(ansiterm.Gray),
}

func newTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 50
	table.Wrap = true
	return table
}

// tone writes text in the colour of t. Callers hold s.mu.
func (s *Shell) tone(t views.Tone, text string) {
	ctx, ok := toneColor[t]
	if !ok {
		ctx = toneColor[views.ToneMuted]
	}
	ctx.Fprintf(s.out, "%s", text)
}

// title writes a heading. Callers hold s.mu.
func (s *Shell) title(format string, args ...any) {
	heading.Fprintf(s.out, format+"\n", args...)
}

func stockLabel(row views.ProductRow) string {
	if !row.InStock {
		return "out of stock"
	}
	return fmt.Sprintf("%d in stock", row.Stock)
}

func when(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func (s *Shell) renderProducts(rows []views.ProductRow) {
	table := newTable()
	table.AddRow("ID", "NAME", "CATEGORY", "PRICE", "STOCK")
	for _, r := range rows {
		table.AddRow(r.ID, r.Name, r.Category, r.Price, stockLabel(r))
	}
	table.RightAlign(3)
	fmt.Fprintln(s.out, table)
}

func (s *Shell) renderProductList(m views.ProductListModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Products")
	if m.Search != "" {
		fmt.Fprintf(s.out, "search: %q\n", m.Search)
	}
	if m.Category != "" {
		for _, opt := range m.Categories {
			if opt.ID == m.Category {
				fmt.Fprintf(s.out, "category: %s\n", opt.Label)
			}
		}
	}
	if m.Empty {
		fmt.Fprintln(s.out, "No products found.")
		return
	}
	s.renderProducts(m.Rows)
	fmt.Fprintf(s.out, "page %d of %d (%s products)\n", m.Page, max(m.TotalPages, 1), humanize.Comma(int64(m.Count)))
}

func (s *Shell) renderCategories(m views.ProductListModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := newTable()
	for _, opt := range m.Categories {
		id := opt.ID
		if id == "" {
			id = "all"
		}
		table.AddRow(id, opt.Label)
	}
	fmt.Fprintln(s.out, table)
}

func (s *Shell) renderProductDetail(m views.ProductDetailModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Product == nil {
		fmt.Fprintln(s.out, "Product not found.")
		return
	}
	p := m.Product
	s.title("%s  %s", p.Name, p.Price)
	fmt.Fprintf(s.out, "%s\n%s, %s\n", m.Description, p.Category, stockLabel(*p))
	if !m.CanAdd {
		return
	}
	minus, plus := "-", "+"
	if !m.CanDecrement {
		minus = " "
	}
	if !m.CanIncrement {
		plus = " "
	}
	fmt.Fprintf(s.out, "quantity [%s] %d [%s]  total %s\n", minus, m.Quantity, plus, m.LinePrice)
}

func (s *Shell) renderCart(m views.CartModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Shopping Cart")
	if m.Empty {
		fmt.Fprintln(s.out, "Your cart is empty.")
		return
	}
	table := newTable()
	table.AddRow("ITEM", "PRODUCT", "PRICE", "QTY", "TOTAL", "")
	for _, r := range m.Rows {
		controls := ""
		if !r.CanIncrement {
			controls = "max stock"
		}
		table.AddRow(r.ItemID, r.Name, r.Price, r.Quantity, r.LineTotal, controls)
	}
	fmt.Fprintln(s.out, table)
	fmt.Fprintf(s.out, "%d items  subtotal %s  shipping %s  total %s\n", m.TotalItems, m.Subtotal, m.Shipping, m.Total)
}

func (s *Shell) renderOrders(rows []views.OrderRow, withCustomer bool) {
	table := newTable()
	header := []any{"ORDER", "PLACED", "STATUS", "PAYMENT", "TOTAL"}
	if withCustomer {
		header = append(header, "CUSTOMER")
	}
	table.AddRow(header...)
	for _, r := range rows {
		row := []any{r.ID, when(r.CreatedAt), r.StatusLabel, r.PaymentStatus, r.Total}
		if withCustomer {
			row = append(row, r.Customer)
		}
		table.AddRow(row...)
	}
	fmt.Fprintln(s.out, table)
}

func (s *Shell) renderOrder(r views.OrderRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Order %s", r.ID)
	fmt.Fprintf(s.out, "placed %s (%s)\nstatus ", r.CreatedAt.Format("2006-01-02 15:04"), when(r.CreatedAt))
	s.tone(r.StatusTone, r.StatusLabel)
	fmt.Fprint(s.out, "  payment ")
	s.tone(r.PaymentTone, r.PaymentStatus)
	fmt.Fprintf(s.out, " (%s)\nship to %s\n", r.PaymentMethod, r.ShippingAddress)
	table := newTable()
	for _, l := range r.Lines {
		table.AddRow(fmt.Sprintf("%d x", l.Quantity), l.Name, l.Price, l.LineTotal)
	}
	fmt.Fprintln(s.out, table)
	fmt.Fprintf(s.out, "total %s\n", r.Total)
}
