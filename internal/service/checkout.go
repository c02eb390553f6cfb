package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"wishing-well/internal/checkout"
	"wishing-well/internal/model"
	"wishing-well/internal/repository"
)

// Checkout bridge errors.
var (
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// StripeAPI is the slice of the Stripe client the checkout service uses.
// It is an interface so handler and service tests can fake the processor.
type StripeAPI interface {
	CreateSession(ctx context.Context, params checkout.CreateSessionParams) (*checkout.Session, error)
	GetSession(ctx context.Context, id string) (*checkout.Session, error)
}

// CheckoutService converts completed payments into session credits. Payment
// verification happens here (signature or retrieve-by-id); the quota ledger
// below trusts this service.
type CheckoutService struct {
	stripe             StripeAPI
	sessionRepo        *repository.SessionRepository
	defaultPriceID     string
	defaultPackCredits int
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(
	stripe StripeAPI,
	sessionRepo *repository.SessionRepository,
	defaultPriceID string,
	defaultPackCredits int,
) *CheckoutService {
	return &CheckoutService{
		stripe:             stripe,
		sessionRepo:        sessionRepo,
		defaultPriceID:     defaultPriceID,
		defaultPackCredits: defaultPackCredits,
	}
}

// CreateCheckout opens a hosted checkout session for a credit pack and
// returns its URL. The quota session token rides along in metadata so the
// confirmation path knows whom to credit.
func (s *CheckoutService) CreateCheckout(ctx context.Context, priceID, token, returnURL string, metadata map[string]string) (string, error) {
	if err := validateToken(token); err != nil {
		return "", err
	}
	if priceID == "" {
		priceID = s.defaultPriceID
	}
	if returnURL == "" {
		return "", errors.New("return_url is required")
	}

	session, err := s.stripe.CreateSession(ctx, checkout.CreateSessionParams{
		PriceID:      priceID,
		SessionToken: token,
		ReturnURL:    returnURL,
		Metadata:     metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	log.Info().Str("checkout_id", session.ID).Str("price_id", priceID).Msg("Checkout session created")
	return session.URL, nil
}

// Confirm retrieves a checkout session by id and credits its pack when the
// payment completed. This is the browser's success-page path; it is
// idempotent with the webhook, so whichever arrives first credits and the
// other is a no-op.
func (s *CheckoutService) Confirm(ctx context.Context, checkoutID string) (*model.Session, int, error) {
	if checkoutID == "" {
		return nil, 0, ErrPaymentNotCompleted
	}

	cs, err := s.stripe.GetSession(ctx, checkoutID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	if !cs.Paid() {
		return nil, 0, ErrPaymentNotCompleted
	}

	return s.credit(ctx, cs)
}

// HandleEvent processes a verified webhook event, crediting the purchased
// pack on checkout completion. Unknown event types are ignored.
func (s *CheckoutService) HandleEvent(ctx context.Context, event *checkout.Event) error {
	if event.Type != checkout.EventCheckoutCompleted {
		log.Debug().Str("type", event.Type).Msg("Ignoring webhook event")
		return nil
	}

	cs := &event.Data.Object
	if !cs.Paid() {
		return ErrPaymentNotCompleted
	}

	_, _, err := s.credit(ctx, cs)
	return err
}

func (s *CheckoutService) credit(ctx context.Context, cs *checkout.Session) (*model.Session, int, error) {
	token := cs.SessionToken()
	if err := validateToken(token); err != nil {
		return nil, 0, fmt.Errorf("checkout %s carries no session token", cs.ID)
	}

	credits := checkout.CreditsFor(cs.PriceID(), s.defaultPackCredits)

	session, credited, err := s.sessionRepo.AddCreditsForCheckout(ctx, token, credits, cs.ID)
	if err != nil {
		return nil, 0, err
	}
	if !credited {
		log.Info().Str("checkout_id", cs.ID).Msg("Checkout already credited")
		return session, 0, nil
	}

	log.Info().
		Str("checkout_id", cs.ID).
		Int("credits", credits).
		Msg("Credits granted for checkout")
	return session, credits, nil
}
