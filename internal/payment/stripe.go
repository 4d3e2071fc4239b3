package payment

import (
	"context"

	"github.com/juju/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeConfirmer confirms intents with Stripe using the publishable key,
// the way the browser card widget does.
type StripeConfirmer struct {
	api *client.API
}

// NewStripeConfirmer returns a confirmer for publishableKey. Nil backends
// means Stripe's production endpoints.
func NewStripeConfirmer(publishableKey string, backends *stripe.Backends) *StripeConfirmer {
	api := &client.API{}
	api.Init(publishableKey, backends)
	return &StripeConfirmer{api: api}
}

func (s *StripeConfirmer) Confirm(ctx context.Context, clientSecret string, card CardInput) (Confirmation, error) {
	intentID := IntentID(clientSecret)
	if intentID == "" {
		return Confirmation{}, errors.NotValidf("client secret")
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{Token: stripe.String(card.Token)},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Address: &stripe.AddressParams{PostalCode: stripe.String(card.PostalCode)},
		},
	}
	pmParams.Context = ctx
	pm, err := s.api.PaymentMethods.New(pmParams)
	if err != nil {
		return Confirmation{}, stripeError(err)
	}

	confirm := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String(pm.ID)}
	confirm.Context = ctx
	confirm.AddExtra("client_secret", clientSecret)
	intent, err := s.api.PaymentIntents.Confirm(intentID, confirm)
	if err != nil {
		return Confirmation{}, stripeError(err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture, stripe.PaymentIntentStatusProcessing:
		return Confirmation{IntentID: intent.ID, Status: string(intent.Status)}, nil
	case stripe.PaymentIntentStatusRequiresAction:
		return Confirmation{}, declined("Your card requires authentication that this client cannot complete.")
	}
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return Confirmation{}, declined(intent.LastPaymentError.Msg)
	}
	return Confirmation{}, declined("Payment intent ended as " + string(intent.Status) + ".")
}

// stripeError keeps the provider message; card errors are declines.
func stripeError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return errors.Annotate(err, "contacting card provider")
	}
	if serr.Type == stripe.ErrorTypeCard {
		return declined(serr.Msg)
	}
	return errors.New(serr.Msg)
}
