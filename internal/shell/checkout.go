package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/checkout"
	"github.com/SigNoz/ecommerce-go-storefront/internal/payment"
	"github.com/SigNoz/ecommerce-go-storefront/internal/views"
)

func (s *Shell) setInFlow(v bool) {
	s.mu.Lock()
	s.inFlow = v
	s.mu.Unlock()
}

func (s *Shell) requireFlow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFlow {
		return errors.NewNotValid(nil, "no checkout in progress, start one with: checkout")
	}
	return nil
}

// cmdCheckout starts the wizard. With an empty cart the cart is shown
// instead.
func (s *Shell) cmdCheckout(ctx context.Context, _ []string) error {
	if err := views.RequireLogin(s.deps.Auth); err != nil {
		return err
	}
	err := s.flow.Start(ctx)
	if errors.Is(err, checkout.ErrEmptyCart) {
		s.setInFlow(false)
		s.renderCart(s.cart.Model())
		return nil
	}
	if err != nil {
		return err
	}
	s.setInFlow(true)
	st := s.flow.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Checkout: shipping")
	if st.Shipping.Address != "" {
		fmt.Fprintf(s.out, "address: %s\n", st.Shipping.Address)
	}
	fmt.Fprintln(s.out, "enter: ship <postal code> [address]")
	return nil
}

func (s *Shell) cmdShip(ctx context.Context, args []string) error {
	if err := s.requireFlow(); err != nil {
		return err
	}
	if err := s.need("ship", args, 1); err != nil {
		return err
	}
	details := checkout.ShippingDetails{PostalCode: args[0], Address: strings.Join(args[1:], " ")}
	if details.Address == "" {
		details.Address = s.flow.State().Shipping.Address
	}
	if err := s.flow.SubmitShipping(ctx, details); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Checkout: payment")
	fmt.Fprintln(s.out, "choose: pay card <token> | pay manual")
	return nil
}

func (s *Shell) cmdPay(ctx context.Context, args []string) error {
	if err := s.requireFlow(); err != nil {
		return err
	}
	if err := s.need("pay", args, 1); err != nil {
		return err
	}
	switch args[0] {
	case "manual":
		if err := s.flow.SelectMethod(checkout.MethodManual); err != nil {
			return err
		}
		s.Success("Mock payment selected, continue with: review")
		return nil
	case "card":
		if err := s.need("pay", args, 2); err != nil {
			return err
		}
		if err := s.flow.SelectMethod(checkout.MethodCard); err != nil {
			return err
		}
		auth, err := s.flow.Authorize(ctx, payment.CardInput{Token: args[1]})
		if err != nil {
			return err
		}
		s.Success(fmt.Sprintf("Payment of %s authorized (%s), continue with: review",
			views.Money(auth.Amount), checkout.MaskID(auth.IntentID)))
		return nil
	}
	return errors.NewNotValid(nil, "usage: "+s.commands["pay"].usage)
}

func (s *Shell) cmdReview(ctx context.Context, _ []string) error {
	if err := s.requireFlow(); err != nil {
		return err
	}
	if err := s.flow.ContinueToReview(ctx); err != nil {
		return err
	}
	sum := s.flow.Summary()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("Checkout: review")
	table := newTable()
	for _, item := range sum.Items {
		table.AddRow(fmt.Sprintf("%d x", item.Quantity), item.Product.Name, views.Money(item.TotalPrice))
	}
	fmt.Fprintln(s.out, table)
	fmt.Fprintf(s.out, "subtotal %s  shipping Free  tax %s  total %s\n",
		views.Money(sum.Subtotal), views.Money(sum.Tax), views.Money(sum.Total))
	fmt.Fprintf(s.out, "ship to %s, %s\n", sum.Shipping.Address, sum.Shipping.PostalCode)
	fmt.Fprintf(s.out, "payment %s", sum.MethodLabel)
	if sum.Authorization != "" {
		fmt.Fprintf(s.out, " (authorized %s)", sum.Authorization)
	}
	fmt.Fprintln(s.out, "\nconfirm with: place")
	return nil
}

func (s *Shell) cmdBack(ctx context.Context, _ []string) error {
	if err := s.requireFlow(); err != nil {
		return err
	}
	if err := s.flow.Back(ctx); err != nil {
		return err
	}
	s.printf("back to %s\n", s.flow.State().Step)
	return nil
}

// cmdPlace submits the order and shows its confirmation.
func (s *Shell) cmdPlace(ctx context.Context, _ []string) error {
	if err := s.requireFlow(); err != nil {
		return err
	}
	order, err := s.flow.Submit(ctx)
	if err != nil {
		return err
	}
	s.setInFlow(false)
	s.Success("Order placed successfully!")
	if err := s.confirmation.Open(ctx, order.ID); err != nil {
		return err
	}
	if m := s.confirmation.Model(); m.Order != nil {
		s.renderOrder(*m.Order)
	}
	return nil
}
