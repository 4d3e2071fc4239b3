package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// PaymentService issues card payment intents. Confirmation happens between
// the client and the card provider; the mock only remembers what it issued.
type PaymentService struct {
	store *Store
}

// NewPaymentService creates a new payment service
func NewPaymentService(store *Store) *PaymentService {
	return &PaymentService{store: store}
}

// CreateIntent records an intent for req.Amount and returns its secret.
func (s *PaymentService) CreateIntent(req models.PaymentIntentRequest) (*models.PaymentIntent, error) {
	if req.Amount <= 0 {
		return nil, errors.NotValidf("amount %d", req.Amount)
	}
	if req.Currency == "" {
		return nil, errors.NotValidf("empty currency")
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	intent := &intentRecord{
		id:       fmt.Sprintf("pi_%d", s.store.id()),
		amount:   req.Amount,
		currency: strings.ToLower(req.Currency),
	}
	intent.secret = intent.id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	s.store.intents[intent.id] = intent
	logger.Debugf("created payment intent %s for %d %s", intent.id, intent.amount, intent.currency)
	return &models.PaymentIntent{ClientSecret: intent.secret, ID: intent.id}, nil
}

// intent returns a recorded intent. Callers hold the lock.
func (s *Store) intent(id string) (*intentRecord, bool) {
	in, ok := s.intents[id]
	return in, ok
}
