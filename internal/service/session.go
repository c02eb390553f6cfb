// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"wishing-well/internal/model"
	"wishing-well/internal/repository"
)

// Common errors surfaced to the transport layer.
var (
	ErrInvalidToken       = errors.New("session token is required")
	ErrNoCreditsAvailable = errors.New("no wish credits available")
	ErrRateLimited        = errors.New("already boosted this wish recently")
	ErrWishNotFound       = errors.New("wish not found")
)

// maxTokenLength bounds client-supplied tokens; anything longer is garbage,
// not a browser session id.
const maxTokenLength = 128

func validateToken(token string) error {
	if token == "" || len(token) > maxTokenLength {
		return ErrInvalidToken
	}
	return nil
}

// SessionService handles quota ledger reads and grants.
type SessionService struct {
	pool        *pgxpool.Pool
	sessionRepo *repository.SessionRepository
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(pool *pgxpool.Pool, sessionRepo *repository.SessionRepository) *SessionService {
	return &SessionService{
		pool:        pool,
		sessionRepo: sessionRepo,
	}
}

// GetOrCreate returns the authoritative credit state for a token, creating
// the session lazily on first reference. The client copy of this state is a
// read-only cache; this call is the source of truth.
func (s *SessionService) GetOrCreate(ctx context.Context, token string) (*model.Session, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetOrCreate(ctx, s.pool, token)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure session: %w", err)
	}
	return session, nil
}

// AddCredits grants purchased credits to a session. Callers must have
// verified payment first; this method trusts them.
func (s *SessionService) AddCredits(ctx context.Context, token string, n int) (*model.Session, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.AddCredits(ctx, token, n)
	if err != nil {
		return nil, fmt.Errorf("failed to add credits: %w", err)
	}
	return session, nil
}
