// Package views holds the presentation models of the storefront screens.
// A view reads store snapshots, works out what its screen shows and
// dispatches store operations. Rendering is left to the shell.
package views

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
)

var logger = loggo.GetLogger("storefront.views")

const (
	// ErrLoginRequired sends the user to the login screen.
	ErrLoginRequired = errors.ConstError("please log in to continue")
	// ErrAdminRequired sends a non-admin back home.
	ErrAdminRequired = errors.ConstError("admin access required")
)

// Notifier shows transient messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) { logger.Infof("%s", msg) }
func (LogNotifier) Error(msg string)   { logger.Errorf("%s", msg) }

// Deps are the stores and notifier shared by all views.
type Deps struct {
	Auth     *state.AuthStore
	Cart     *state.CartStore
	Products *state.ProductStore
	Orders   *state.OrderStore
	Notifier Notifier
}

// report shows err to the user and returns it. A superseded read is not a
// failure: the newer one will report.
func (d Deps) report(err error) error {
	if err == nil || errors.Is(err, state.ErrStale) {
		return nil
	}
	d.Notifier.Error(Message(err))
	return err
}

// Message is the user-facing text of err.
func Message(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// RequireLogin fails unless a credential is stored.
func RequireLogin(auth *state.AuthStore) error {
	if !auth.IsAuthenticated() {
		return ErrLoginRequired
	}
	return nil
}

// RequireAdmin fails unless the loaded user is an admin.
func RequireAdmin(auth *state.AuthStore) error {
	if err := RequireLogin(auth); err != nil {
		return err
	}
	if !auth.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// Money formats an amount as dollars.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Tone is the colour family a status is shown in.
type Tone string

const (
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
	TonePrimary Tone = "primary"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneMuted   Tone = "muted"
)

// StatusTone maps an order status to its tone.
func StatusTone(s models.OrderStatus) Tone {
	switch s {
	case models.OrderPending:
		return ToneWarning
	case models.OrderProcessing:
		return ToneInfo
	case models.OrderShipped:
		return TonePrimary
	case models.OrderDelivered:
		return ToneSuccess
	case models.OrderCancelled:
		return ToneDanger
	}
	return ToneMuted
}

// PaymentTone maps a payment status to its tone.
func PaymentTone(s models.PaymentStatus) Tone {
	switch s {
	case models.PaymentCompleted:
		return ToneSuccess
	case models.PaymentPending:
		return ToneWarning
	case models.PaymentFailed:
		return ToneDanger
	}
	return ToneMuted
}

// Title capitalises the first letter of a status.
func Title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PaymentMethodLabel names a backend payment method.
func PaymentMethodLabel(method string) string {
	switch method {
	case models.PaymentMethodCard:
		return "Credit/Debit Card"
	case models.PaymentMethodManual:
		return "Mock Payment"
	}
	return method
}
