package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

func (s *Shell) renderHome(ctx context.Context) error {
	if err := s.home.Open(ctx); err != nil {
		return err
	}
	rows := s.home.Featured()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Featured Products")
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "Nothing featured right now.")
		return nil
	}
	s.renderProducts(rows)
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.NotValidf("id %q", arg)
	}
	return id, nil
}

func (s *Shell) cmdProducts(ctx context.Context, args []string) error {
	if len(args) > 0 {
		page, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.NotValidf("page %q", args[0])
		}
		if err := s.list.SetPage(ctx, page); err != nil {
			return err
		}
	} else if err := s.list.Open(ctx); err != nil {
		return err
	}
	s.renderProductList(s.list.Model())
	return nil
}

// cmdSearch applies the search text. While typing, the text already went
// through the debounced filter; only an unsettled or different query is
// sent now, otherwise the one in flight is waited for.
func (s *Shell) cmdSearch(ctx context.Context, args []string) error {
	text := strings.Join(args, " ")
	if s.list.NeedsSearch(text) {
		s.list.SetSearch(text)
	}
	s.list.Settle()
	s.renderProductList(s.list.Model())
	return nil
}

func (s *Shell) cmdCategory(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.renderCategories(s.list.Model())
		return nil
	}
	id := args[0]
	if id == "all" {
		id = ""
	} else if _, err := parseID(id); err != nil {
		return err
	}
	s.list.SetCategory(id)
	s.list.Settle()
	s.renderProductList(s.list.Model())
	return nil
}

func (s *Shell) cmdProduct(ctx context.Context, args []string) error {
	if err := s.need("product", args, 1); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := s.detail.Open(ctx, id); err != nil {
		return err
	}
	s.renderProductDetail(s.detail.Model())
	return nil
}

func (s *Shell) cmdQty(ctx context.Context, args []string) error {
	if err := s.need("qty", args, 1); err != nil {
		return err
	}
	if s.detail.Model().Product == nil {
		return errors.NewNotValid(nil, "open a product first: product <id>")
	}
	switch args[0] {
	case "+":
		s.detail.Increment()
	case "-":
		s.detail.Decrement()
	default:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.NotValidf("quantity %q", args[0])
		}
		s.detail.SetQuantity(n)
	}
	s.renderProductDetail(s.detail.Model())
	return nil
}

// cmdAdd adds the product on screen, or the product named by id.
func (s *Shell) cmdAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return s.detail.AddToCart(ctx)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty := 1
	if len(args) > 1 {
		if qty, err = strconv.Atoi(args[1]); err != nil || qty < 1 {
			return errors.NotValidf("quantity %q", args[1])
		}
	}
	if err := s.detail.Open(ctx, id); err != nil {
		return err
	}
	s.detail.SetQuantity(qty)
	return s.detail.AddToCart(ctx)
}
