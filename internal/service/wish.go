package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"wishing-well/internal/config"
	"wishing-well/internal/model"
	"wishing-well/internal/pkg/cache"
	"wishing-well/internal/pkg/lock"
	"wishing-well/internal/repository"
)

// WishService handles wish submission and feed reads.
type WishService struct {
	pool        *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	wishRepo    *repository.WishRepository
	sessionLock *lock.SessionLock
	feedCache   *cache.FeedCache
	ranking     config.RankingConfig
}

// NewWishService creates a new WishService instance.
func NewWishService(
	pool *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	wishRepo *repository.WishRepository,
	sessionLock *lock.SessionLock,
	feedCache *cache.FeedCache,
	ranking config.RankingConfig,
) *WishService {
	return &WishService{
		pool:        pool,
		sessionRepo: sessionRepo,
		wishRepo:    wishRepo,
		sessionLock: sessionLock,
		feedCache:   feedCache,
		ranking:     ranking,
	}
}

// Submit validates the wish text, spends one credit, and inserts the wish.
// The spend and the insert run in a single transaction so a failure cannot
// leave a credit consumed without a wish.
func (s *WishService) Submit(ctx context.Context, token, text string) (*model.Wish, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	if err := model.ValidateWishText(text); err != nil {
		return nil, err
	}

	s.sessionLock.Lock(token)
	defer s.sessionLock.Unlock(token)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin submit transaction: %w", err)
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

	wish, err := s.wishRepo.Insert(ctx, tx, text)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit submit transaction: %w", err)
	}

	log.Info().Str("wish_id", wish.ID).Msg("Wish submitted")
	return wish, nil
}

// ClampPage normalizes feed pagination against the configured bounds.
func (s *WishService) ClampPage(limit, offset int) (int, int) {
	return clampPage(limit, offset, s.ranking.DefaultLimit, s.ranking.MaxLimit)
}

func clampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Feed returns one page of a ranking view. Pages are recomputed per query;
// when the snapshot cache is enabled an identical page may be served from it
// for a few seconds instead.
func (s *WishService) Feed(ctx context.Context, tab model.Tab, limit, offset int) ([]*model.Wish, error) {
	limit, offset = s.ClampPage(limit, offset)

	key := cache.Key(string(tab), limit, offset)
	var cached []*model.Wish
	if s.feedCache.Get(ctx, key, &cached) {
		return cached, nil
	}

	var (
		wishes []*model.Wish
		err    error
	)
	switch tab {
	case model.TabNew:
		wishes, err = s.wishRepo.ListNew(ctx, limit, offset)
	case model.TabTop:
		wishes, err = s.wishRepo.ListTop(ctx, limit, offset)
	case model.TabLegends:
		wishes, err = s.wishRepo.ListLegends(ctx, s.ranking.LegendsThreshold, limit, offset)
	case model.TabHot:
		wishes, err = s.wishRepo.ListHot(ctx, s.ranking.Gravity, limit, offset)
	case model.TabRising:
		wishes, err = s.wishRepo.ListRising(ctx, s.ranking.RisingWindow, limit, offset)
	default:
		return nil, fmt.Errorf("unknown feed tab %q", tab)
	}
	if err != nil {
		return nil, err
	}

	s.feedCache.Set(ctx, key, wishes)
	return wishes, nil
}
