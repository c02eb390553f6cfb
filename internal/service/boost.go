package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"wishing-well/internal/model"
	"wishing-well/internal/pkg/lock"
	"wishing-well/internal/repository"
)

// BoostService handles the boost pipeline: cooldown check, credit spend,
// counter increment, and boost event append.
type BoostService struct {
	pool        *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	wishRepo    *repository.WishRepository
	boostRepo   *repository.BoostRepository
	sessionLock *lock.SessionLock
	cooldown    time.Duration
}

// NewBoostService creates a new BoostService instance.
func NewBoostService(
	pool *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	wishRepo *repository.WishRepository,
	boostRepo *repository.BoostRepository,
	sessionLock *lock.SessionLock,
	cooldown time.Duration,
) *BoostService {
	return &BoostService{
		pool:        pool,
		sessionRepo: sessionRepo,
		wishRepo:    wishRepo,
		boostRepo:   boostRepo,
		sessionLock: sessionLock,
		cooldown:    cooldown,
	}
}

// Boost spends one credit to bump a wish's counter. Order matters: the
// cooldown check runs before the credit spend because it mutates nothing,
// so a rate-limited caller keeps their credit. The per-token lock plus the
// log lookup keep one session from boosting the same wish twice inside the
// window even under concurrent requests; the spend, increment, and event
// append then commit together.
func (s *BoostService) Boost(ctx context.Context, token, wishID string) (*model.Wish, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}

	if _, err := s.wishRepo.GetByID(ctx, wishID); err != nil {
		if errors.Is(err, repository.ErrWishNotFound) {
			return nil, ErrWishNotFound
		}
		return nil, err
	}

	s.sessionLock.Lock(token)
	defer s.sessionLock.Unlock(token)

	recent, err := s.boostRepo.ExistsRecent(ctx, wishID, token, s.cooldown)
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, ErrRateLimited
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin boost transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.sessionRepo.GetOrCreate(ctx, tx, token); err != nil {
		return nil, err
	}

	if _, err := s.sessionRepo.ConsumeCredit(ctx, tx, token); err != nil {
		if errors.Is(err, repository.ErrNoCredits) {
			return nil, ErrNoCreditsAvailable
		}
		return nil, err
	}

	wish, err := s.wishRepo.IncrementBoosts(ctx, tx, wishID)
	if err != nil {
		if errors.Is(err, repository.ErrWishNotFound) {
			return nil, ErrWishNotFound
		}
		return nil, err
	}

	if _, err := s.boostRepo.Insert(ctx, tx, wishID, token); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit boost transaction: %w", err)
	}

	log.Info().Str("wish_id", wishID).Int64("boosts", wish.Boosts).Msg("Wish boosted")
	return wish, nil
}

// Cooldown returns the configured per-wish boost cooldown.
func (s *BoostService) Cooldown() time.Duration {
	return s.cooldown
}
