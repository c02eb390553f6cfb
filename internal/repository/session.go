package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wishing-well/internal/model"
)

// SessionRepository handles quota ledger persistence. A session row is the
// authoritative credit state for one anonymous browser token.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetOrCreate returns the session for a token, inserting a fresh one with an
// unused free credit if none exists. The upsert makes concurrent calls with
// the same token converge on a single row.
func (r *SessionRepository) GetOrCreate(ctx context.Context, db DB, token string) (*model.Session, error) {
	const query = `
		INSERT INTO sessions (token, free_wish_used, purchased_wishes, created_at, updated_at)
		VALUES ($1, FALSE, 0, NOW(), NOW())
		ON CONFLICT (token) DO UPDATE SET updated_at = NOW()
		RETURNING token, free_wish_used, purchased_wishes, created_at, updated_at
	`

	var s model.Session
	err := db.QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.FreeWishUsed,
		&s.PurchasedWishes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create session: %w", err)
	}

	return &s, nil
}

// Get retrieves a session by token.
// Returns ErrSessionNotFound if the session does not exist.
func (r *SessionRepository) Get(ctx context.Context, token string) (*model.Session, error) {
	const query = `
		SELECT token, free_wish_used, purchased_wishes, created_at, updated_at
		FROM sessions
		WHERE token = $1
	`

	var s model.Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.FreeWishUsed,
		&s.PurchasedWishes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

// ConsumeCredit atomically spends one credit: the free credit if it is still
// unused, otherwise one purchased credit. The guarded single-statement UPDATE
// is what prevents a double spend under concurrent requests; the column
// references in SET read the pre-update row, so the free credit and the
// purchased counter can never be spent together.
// Returns ErrNoCredits when the session has nothing left to spend.
func (r *SessionRepository) ConsumeCredit(ctx context.Context, db DB, token string) (*model.Session, error) {
	const query = `
		UPDATE sessions
		SET free_wish_used = TRUE,
		    purchased_wishes = purchased_wishes - CASE WHEN free_wish_used THEN 1 ELSE 0 END,
		    updated_at = NOW()
		WHERE token = $1
		  AND (free_wish_used = FALSE OR purchased_wishes > 0)
		RETURNING token, free_wish_used, purchased_wishes, created_at, updated_at
	`

	var s model.Session
	err := db.QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.FreeWishUsed,
		&s.PurchasedWishes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCredits
		}
		return nil, fmt.Errorf("failed to consume credit: %w", err)
	}

	return &s, nil
}

// AddCredits atomically grants purchased credits to a session, creating the
// session row if the token has never been seen. Called only after payment
// verification.
func (r *SessionRepository) AddCredits(ctx context.Context, token string, n int) (*model.Session, error) {
	if n <= 0 {
		return nil, fmt.Errorf("credit grant must be positive, got %d", n)
	}

	var s model.Session
	err := r.pool.QueryRow(ctx, addCreditsQuery, token, n).Scan(
		&s.Token,
		&s.FreeWishUsed,
		&s.PurchasedWishes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add credits: %w", err)
	}

	return &s, nil
}

const addCreditsQuery = `
	INSERT INTO sessions (token, free_wish_used, purchased_wishes, created_at, updated_at)
	VALUES ($1, FALSE, $2, NOW(), NOW())
	ON CONFLICT (token) DO UPDATE
	SET purchased_wishes = sessions.purchased_wishes + EXCLUDED.purchased_wishes,
	    updated_at = NOW()
	RETURNING token, free_wish_used, purchased_wishes, created_at, updated_at
`

// AddCreditsForCheckout grants credits at most once per checkout session id.
// The webhook and the browser confirm flow can both observe the same payment;
// the unique insert into credited_checkouts decides which of them credits.
// Returns credited=false when the checkout was already processed.
func (r *SessionRepository) AddCreditsForCheckout(ctx context.Context, token string, n int, checkoutID string) (*model.Session, bool, error) {
	if n <= 0 {
		return nil, false, fmt.Errorf("credit grant must be positive, got %d", n)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const claim = `
		INSERT INTO credited_checkouts (checkout_session_id, token, credits, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (checkout_session_id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, claim, checkoutID, token, n)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim checkout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Another call already credited this checkout.
		s, err := r.Get(ctx, token)
		if err != nil {
			return nil, false, err
		}
		return s, false, nil
	}

	var s model.Session
	err = tx.QueryRow(ctx, addCreditsQuery, token, n).Scan(
		&s.Token,
		&s.FreeWishUsed,
		&s.PurchasedWishes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to add credits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit credit transaction: %w", err)
	}

	return &s, true, nil
}
