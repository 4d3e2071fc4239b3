package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/views"
)

func (s *Shell) cmdAdmin(ctx context.Context, args []string) error {
	if err := views.RequireAdmin(s.deps.Auth); err != nil {
		return err
	}
	if err := s.need("admin", args, 1); err != nil {
		return err
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "products":
		return s.adminListProducts(ctx)
	case "orders":
		return s.adminListOrders(ctx)
	case "dashboard":
		return s.adminDashboard(ctx)
	case "status":
		if len(rest) != 2 {
			return errors.NewNotValid(nil, "usage: admin status <order> <status>")
		}
		if err := s.adminOrders.SetStatus(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		return s.adminListOrders(ctx)
	case "create":
		in, err := applyFields(views.ProductInput{IsActive: true}, rest)
		if err != nil {
			return err
		}
		p, err := s.adminProducts.Save(ctx, 0, in)
		if err != nil {
			return err
		}
		s.printf("product %d created\n", p.ID)
		return nil
	case "edit":
		if len(rest) < 2 {
			return errors.NewNotValid(nil, "usage: admin edit <id> field=value...")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		current, err := s.adminProducts.Product(id)
		if errors.Is(err, errors.NotFound) {
			var p *models.Product
			if p, err = s.deps.Products.Get(ctx, id); err == nil {
				current = *p
			}
		}
		if err != nil {
			return err
		}
		in, err := applyFields(views.InputFromProduct(current), rest[1:])
		if err != nil {
			return err
		}
		_, err = s.adminProducts.Save(ctx, id, in)
		return err
	case "delete":
		if len(rest) != 1 {
			return errors.NewNotValid(nil, "usage: admin delete <id>")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		return s.adminProducts.Delete(ctx, id)
	}
	return errors.NewNotValid(nil, "usage: "+s.commands["admin"].usage)
}

// applyFields sets product form fields from field=value arguments.
func applyFields(in views.ProductInput, args []string) (views.ProductInput, error) {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return in, errors.NotValidf("field %q, want field=value", arg)
		}
		switch key {
		case "name":
			in.Name = value
		case "description":
			in.Description = value
		case "price":
			in.Price = value
		case "stock":
			in.Stock = value
		case "category":
			in.Category = value
		case "image":
			in.ImagePath = value
		case "active":
			active, err := strconv.ParseBool(value)
			if err != nil {
				return in, errors.NotValidf("active %q", value)
			}
			in.IsActive = active
		default:
			return in, errors.NotValidf("field %q", key)
		}
	}
	return in, nil
}

func (s *Shell) adminListProducts(ctx context.Context) error {
	if err := s.adminProducts.Open(ctx); err != nil {
		return err
	}
	m := s.adminProducts.Model()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Manage Products")
	table := newTable()
	table.AddRow("ID", "NAME", "CATEGORY", "PRICE", "STOCK", "STATUS")
	for _, r := range m.Rows {
		table.AddRow(r.ID, r.Name, r.Category, r.Price, r.Stock, r.Status)
	}
	fmt.Fprintln(s.out, table)
	if m.TotalPages > 1 {
		fmt.Fprintf(s.out, "page %d of %d\n", m.Page, m.TotalPages)
	}
	return nil
}

func (s *Shell) adminListOrders(ctx context.Context) error {
	if err := s.adminOrders.Open(ctx); err != nil {
		return err
	}
	m := s.adminOrders.Model()
	statuses := make([]string, len(m.Statuses))
	for i, st := range m.Statuses {
		statuses[i] = string(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Manage Orders")
	s.renderOrders(m.Rows, true)
	fmt.Fprintf(s.out, "statuses: %s\n", strings.Join(statuses, ", "))
	return nil
}

func (s *Shell) adminDashboard(ctx context.Context) error {
	if err := s.dashboard.Open(ctx); err != nil {
		return err
	}
	m := s.dashboard.Model()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Admin Dashboard")
	fmt.Fprintf(s.out, "orders %d  revenue %s  pending %d\n", m.TotalOrders, m.TotalRevenue, m.PendingOrders)
	if len(m.Recent) > 0 {
		fmt.Fprintln(s.out, "recent orders:")
		s.renderOrders(m.Recent, true)
	}
	return nil
}
