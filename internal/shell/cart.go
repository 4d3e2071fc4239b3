package shell

import (
	"context"

	"github.com/juju/errors"
)

func (s *Shell) cmdCart(ctx context.Context, _ []string) error {
	if err := s.cart.Open(ctx); err != nil {
		return err
	}
	s.renderCart(s.cart.Model())
	return nil
}

func (s *Shell) itemCommand(name string, args []string, run func(context.Context, int64) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := s.need(name, args, 1); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := run(ctx, id); err != nil {
			return err
		}
		s.renderCart(s.cart.Model())
		return nil
	}
}

func (s *Shell) cmdInc(ctx context.Context, args []string) error {
	return s.itemCommand("inc", args, s.cart.Increment)(ctx)
}

func (s *Shell) cmdDec(ctx context.Context, args []string) error {
	err := s.itemCommand("dec", args, s.cart.Decrement)(ctx)
	if errors.Is(err, errors.NotValid) && len(args) > 0 {
		s.printf("use rm %s to remove the item\n", args[0])
	}
	return err
}

func (s *Shell) cmdRemove(ctx context.Context, args []string) error {
	return s.itemCommand("rm", args, s.cart.Remove)(ctx)
}

func (s *Shell) cmdClear(ctx context.Context, _ []string) error {
	if err := s.cart.Clear(ctx); err != nil {
		return err
	}
	s.renderCart(s.cart.Model())
	return nil
}
