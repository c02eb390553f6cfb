package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wishing-well/internal/model"
)

// WishRepository handles wish persistence and the five feed queries.
type WishRepository struct {
	pool *pgxpool.Pool
}

// NewWishRepository creates a new WishRepository instance.
func NewWishRepository(pool *pgxpool.Pool) *WishRepository {
	return &WishRepository{pool: pool}
}

const wishColumns = "id, text, boosts, is_public, flagged, created_at"

func scanWish(row pgx.Row) (*model.Wish, error) {
	var w model.Wish
	err := row.Scan(
		&w.ID,
		&w.Text,
		&w.Boosts,
		&w.IsPublic,
		&w.Flagged,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Insert creates a new wish with zero boosts. It takes an explicit DB so the
// submission service can run it in the same transaction as the credit spend.
func (r *WishRepository) Insert(ctx context.Context, db DB, text string) (*model.Wish, error) {
	const query = `
		INSERT INTO wishes (id, text, boosts, is_public, flagged, created_at)
		VALUES ($1, $2, 0, TRUE, FALSE, NOW())
		RETURNING ` + wishColumns

	w, err := scanWish(db.QueryRow(ctx, query, uuid.NewString(), text))
	if err != nil {
		return nil, fmt.Errorf("failed to insert wish: %w", err)
	}
	return w, nil
}

// GetByID retrieves a wish by id.
// Returns ErrWishNotFound if the wish does not exist.
func (r *WishRepository) GetByID(ctx context.Context, id string) (*model.Wish, error) {
	const query = `SELECT ` + wishColumns + ` FROM wishes WHERE id = $1`

	w, err := scanWish(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWishNotFound
		}
		return nil, fmt.Errorf("failed to get wish: %w", err)
	}
	return w, nil
}

// IncrementBoosts bumps a wish's boost counter by one. The counter is
// monotonic; nothing ever decrements it.
func (r *WishRepository) IncrementBoosts(ctx context.Context, db DB, id string) (*model.Wish, error) {
	const query = `
		UPDATE wishes
		SET boosts = boosts + 1
		WHERE id = $1
		RETURNING ` + wishColumns

	w, err := scanWish(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWishNotFound
		}
		return nil, fmt.Errorf("failed to increment boosts: %w", err)
	}
	return w, nil
}

// SetFlagged marks or unmarks a wish for moderation. Flagged wishes stay in
// the table but disappear from every feed.
func (r *WishRepository) SetFlagged(ctx context.Context, id string, flagged bool) error {
	const query = `UPDATE wishes SET flagged = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, flagged)
	if err != nil {
		return fmt.Errorf("failed to flag wish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWishNotFound
	}
	return nil
}

// feedFilter excludes moderated and private wishes from every feed.
const feedFilter = "flagged = FALSE AND is_public = TRUE"

// ListNew returns wishes in reverse chronological order.
func (r *WishRepository) ListNew(ctx context.Context, limit, offset int) ([]*model.Wish, error) {
	const query = `
		SELECT ` + wishColumns + `
		FROM wishes
		WHERE ` + feedFilter + `
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

// ListTop returns wishes by all-time boost count, newest first on ties.
func (r *WishRepository) ListTop(ctx context.Context, limit, offset int) ([]*model.Wish, error) {
	const query = `
		SELECT ` + wishColumns + `
		FROM wishes
		WHERE ` + feedFilter + `
		ORDER BY boosts DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

// ListLegends returns wishes at or above the boost threshold, most boosted
// first.
func (r *WishRepository) ListLegends(ctx context.Context, threshold int64, limit, offset int) ([]*model.Wish, error) {
	const query = `
		SELECT ` + wishColumns + `
		FROM wishes
		WHERE ` + feedFilter + ` AND boosts >= $1
		ORDER BY boosts DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, threshold, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list legends wishes: %w", err)
	}
	return collectWishes(rows)
}

// ListHot returns wishes ordered by a decayed popularity score
// boosts / (age_hours + 2)^gravity, the Hacker News style ranking.
// The score is recomputed per query.
func (r *WishRepository) ListHot(ctx context.Context, gravity float64, limit, offset int) ([]*model.Wish, error) {
	const query = `
		SELECT ` + wishColumns + `,
		       boosts / POWER(GREATEST(EXTRACT(EPOCH FROM (NOW() - created_at)) / 3600.0, 0) + 2, $1) AS score
		FROM wishes
		WHERE ` + feedFilter + `
		ORDER BY score DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, gravity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list hot wishes: %w", err)
	}
	defer rows.Close()

	var wishes []*model.Wish
	for rows.Next() {
		var w model.Wish
		err := rows.Scan(
			&w.ID,
			&w.Text,
			&w.Boosts,
			&w.IsPublic,
			&w.Flagged,
			&w.CreatedAt,
			&w.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hot wish: %w", err)
		}
		wishes = append(wishes, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hot wishes: %w", err)
	}
	return wishes, nil
}

// ListRising returns wishes ordered by how many boost events they collected
// inside the trailing window, so total boosts alone cannot keep an old wish
// on top.
func (r *WishRepository) ListRising(ctx context.Context, window time.Duration, limit, offset int) ([]*model.Wish, error) {
	const query = `
		SELECT w.id, w.text, w.boosts, w.is_public, w.flagged, w.created_at,
		       COUNT(b.id) AS recent_boosts_count
		FROM wishes w
		LEFT JOIN wishes_boosts b
		  ON b.wish_id = w.id AND b.created_at >= NOW() - make_interval(secs => $1)
		WHERE w.flagged = FALSE AND w.is_public = TRUE
		GROUP BY w.id, w.text, w.boosts, w.is_public, w.flagged, w.created_at
		ORDER BY recent_boosts_count DESC, w.boosts DESC, w.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, window.Seconds(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rising wishes: %w", err)
	}
	defer rows.Close()

	var wishes []*model.Wish
	for rows.Next() {
		var w model.Wish
		err := rows.Scan(
			&w.ID,
			&w.Text,
			&w.Boosts,
			&w.IsPublic,
			&w.Flagged,
			&w.CreatedAt,
			&w.RecentBoosts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rising wish: %w", err)
		}
		wishes = append(wishes, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rising wishes: %w", err)
	}
	return wishes, nil
}

func (r *WishRepository) list(ctx context.Context, query string, limit, offset int) ([]*model.Wish, error) {
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishes: %w", err)
	}
	return collectWishes(rows)
}

func collectWishes(rows pgx.Rows) ([]*model.Wish, error) {
	defer rows.Close()

	var wishes []*model.Wish
	for rows.Next() {
		w, err := scanWish(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wish: %w", err)
		}
		wishes = append(wishes, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishes: %w", err)
	}
	return wishes, nil
}
