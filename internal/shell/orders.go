package shell

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/juju/errors"
)

func (s *Shell) cmdOrders(ctx context.Context, _ []string) error {
	if err := s.history.Open(ctx); err != nil {
		return err
	}
	m := s.history.Model()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("My Orders")
	if m.Empty {
		fmt.Fprintln(s.out, "You have no orders yet.")
		return nil
	}
	s.renderOrders(m.Rows, false)
	return nil
}

func (s *Shell) cmdOrder(ctx context.Context, args []string) error {
	if err := s.need("order", args, 1); err != nil {
		return err
	}
	if err := s.confirmation.Open(ctx, args[0]); err != nil {
		return err
	}
	if m := s.confirmation.Model(); m.Order != nil {
		s.renderOrder(*m.Order)
	}
	return nil
}

func (s *Shell) cmdCancel(ctx context.Context, args []string) error {
	if err := s.need("cancel", args, 1); err != nil {
		return err
	}
	return s.history.Cancel(ctx, args[0])
}

// cmdReceipt saves a receipt and, with --open, shows it in the browser.
func (s *Shell) cmdReceipt(ctx context.Context, args []string) error {
	if err := s.need("receipt", args, 1); err != nil {
		return err
	}
	id, open := args[0], false
	for _, a := range args[1:] {
		if a != "--open" {
			return errors.NewNotValid(nil, "usage: "+s.commands["receipt"].usage)
		}
		open = true
	}
	path, err := s.history.DownloadReceipt(ctx, id)
	if err != nil || !open {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Trace(err)
	}
	if err := s.cfg.OpenURL(&url.URL{Scheme: "file", Path: abs}); err != nil {
		return errors.Annotate(err, "opening receipt")
	}
	return nil
}
