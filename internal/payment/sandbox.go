package payment

import (
	"context"
	"strings"

	"github.com/juju/errors"
)

// Test card tokens understood by SandboxConfirmer. They match the
// provider's own test tokens.
const (
	TokenVisa              = "tok_visa"
	TokenMastercard        = "tok_mastercard"
	TokenDeclined          = "tok_chargeDeclined"
	TokenInsufficientFunds = "tok_chargeDeclinedInsufficientFunds"
)

var sandboxDeclines = map[string]string{
	TokenDeclined:          "Your card was declined.",
	TokenInsufficientFunds: "Your card has insufficient funds.",
}

// SandboxConfirmer confirms intents locally from test tokens, for use
// against the mock API.
type SandboxConfirmer struct{}

func (SandboxConfirmer) Confirm(ctx context.Context, clientSecret string, card CardInput) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, errors.Trace(err)
	}
	id := IntentID(clientSecret)
	if id == "" || !strings.Contains(clientSecret, "_secret_") {
		return Confirmation{}, errors.NotValidf("client secret %q", clientSecret)
	}
	if strings.TrimSpace(card.PostalCode) == "" {
		return Confirmation{}, declined("Your postal code is incomplete.")
	}
	switch card.Token {
	case TokenVisa, TokenMastercard:
		return Confirmation{IntentID: id, Status: "succeeded"}, nil
	}
	if msg, ok := sandboxDeclines[card.Token]; ok {
		return Confirmation{}, declined(msg)
	}
	return Confirmation{}, errors.NotValidf("test card token %q", card.Token)
}
