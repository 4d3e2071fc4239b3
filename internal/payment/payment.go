// Package payment authorizes card payments: the backend issues a
// short-lived intent secret and a Confirmer completes it with the card.
package payment

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

var logger = loggo.GetLogger("storefront.payment")

// Description is sent with every intent request.
const Description = "E-commerce order payment"

// ErrDeclined marks a refusal by the card provider. The error message is
// the provider's.
const ErrDeclined = errors.ConstError("card declined")

// CardInput is what the card widget captured.
type CardInput struct {
	// Token is a provider card token such as "tok_visa".
	Token string
	// PostalCode is sent as the billing postal code.
	PostalCode string
}

// Confirmation is a confirmed intent.
type Confirmation struct {
	IntentID string
	Status   string
}

// Confirmer completes an intent with card details.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret string, card CardInput) (Confirmation, error)
}

// IntentAPI creates intents on the backend.
type IntentAPI interface {
	CreateIntent(ctx context.Context, req models.PaymentIntentRequest) (*models.PaymentIntent, error)
}

// Authorization is a successful card authorization.
type Authorization struct {
	IntentID string
	Amount   decimal.Decimal
	Cents    int64
	Currency string
}

// Authorizer runs the two-step authorization. Each call is a single
// attempt and creates a fresh intent.
type Authorizer struct {
	intents   IntentAPI
	confirmer Confirmer
	metrics   *metrics.AppMetrics
}

func NewAuthorizer(intents IntentAPI, confirmer Confirmer, m *metrics.AppMetrics) *Authorizer {
	return &Authorizer{intents: intents, confirmer: confirmer, metrics: m}
}

// Cents converts an amount to the smallest currency unit, rounding half
// away from zero.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Authorize requests an intent for amount and confirms it with card.
func (a *Authorizer) Authorize(ctx context.Context, amount decimal.Decimal, currency string, card CardInput) (Authorization, error) {
	cents := Cents(amount)
	if cents <= 0 {
		return Authorization{}, errors.NotValidf("amount %s", amount)
	}
	if strings.TrimSpace(card.Token) == "" {
		return Authorization{}, errors.NotValidf("empty card")
	}
	intent, err := a.intents.CreateIntent(ctx, models.PaymentIntentRequest{
		Amount:      cents,
		Currency:    currency,
		Description: Description,
	})
	if err != nil {
		a.metrics.RecordAuthorization(ctx, "error")
		return Authorization{}, errors.Annotate(err, "creating payment intent")
	}
	conf, err := a.confirmer.Confirm(ctx, intent.ClientSecret, card)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrDeclined) {
			outcome = "declined"
		}
		a.metrics.RecordAuthorization(ctx, outcome)
		logger.Debugf("authorization of %d %s failed: %v", cents, currency, err)
		return Authorization{}, errors.Trace(err)
	}
	id := conf.IntentID
	if id == "" {
		id = intent.ID
	}
	if id == "" {
		id = IntentID(intent.ClientSecret)
	}
	a.metrics.RecordAuthorization(ctx, "succeeded")
	logger.Infof("authorized %d %s as %s", cents, currency, id)
	return Authorization{IntentID: id, Amount: amount, Cents: cents, Currency: currency}, nil
}

// IntentID extracts the intent id from a client secret of the form
// "<id>_secret_<nonce>".
func IntentID(clientSecret string) string {
	id, _, _ := strings.Cut(clientSecret, "_secret_")
	return id
}

func declined(msg string) error {
	return errors.WithType(errors.New(msg), ErrDeclined)
}
