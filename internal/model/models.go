// Package model defines the data models for the Wishing Well service.
package model

import (
	"errors"
	"time"
	"unicode/utf8"
)

// MaxWishLength is the maximum wish text length in characters (not bytes).
const MaxWishLength = 200

// ErrInvalidText is returned when wish text is empty or exceeds MaxWishLength.
var ErrInvalidText = errors.New("wish text must be between 1 and 200 characters")

// Session represents an anonymous browser session and its credit state.
// The token is generated client-side and is the unit of quota accounting;
// it is not an authenticated identity.
type Session struct {
	Token           string    `db:"token" json:"token"`
	FreeWishUsed    bool      `db:"free_wish_used" json:"free_wish_used"`
	PurchasedWishes int       `db:"purchased_wishes" json:"purchased_wishes"`
	CreatedAt       time.Time `db:"created_at" json:"-"`
	UpdatedAt       time.Time `db:"updated_at" json:"-"`
}

// CreditsRemaining returns the number of wish/boost credits the session
// can still spend.
func (s *Session) CreditsRemaining() int {
	return CreditsRemaining(s.FreeWishUsed, s.PurchasedWishes)
}

// HasCredits reports whether the session can spend at least one credit.
func (s *Session) HasCredits() bool {
	return !s.FreeWishUsed || s.PurchasedWishes > 0
}

// CreditsRemaining computes remaining credits from raw session state.
func CreditsRemaining(freeWishUsed bool, purchasedWishes int) int {
	if !freeWishUsed {
		return purchasedWishes + 1
	}
	return purchasedWishes
}

// Wish represents a submitted wish. Boosts only ever increase; flagged
// wishes stay in the table but are excluded from every feed.
type Wish struct {
	ID        string    `db:"id" json:"id"`
	Text      string    `db:"text" json:"text"`
	Boosts    int64     `db:"boosts" json:"boosts"`
	IsPublic  bool      `db:"is_public" json:"is_public"`
	Flagged   bool      `db:"flagged" json:"flagged"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Score is populated only by the hot feed.
	Score float64 `db:"score" json:"score,omitempty"`
	// RecentBoosts is populated only by the rising feed.
	RecentBoosts int64 `db:"recent_boosts_count" json:"recent_boosts_count,omitempty"`
}

// BoostEvent is one row of the append-only boost log. It exists for
// auditing and for the cooldown/rising-window queries; rows are never
// updated or deleted.
type BoostEvent struct {
	ID        string    `db:"id" json:"id"`
	WishID    string    `db:"wish_id" json:"wish_id"`
	Who       string    `db:"who" json:"who"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Tab identifies one of the five feed orderings.
type Tab string

// Feed tabs.
const (
	TabHot     Tab = "hot"
	TabNew     Tab = "new"
	TabTop     Tab = "top"
	TabLegends Tab = "legends"
	TabRising  Tab = "rising"
)

// ParseTab validates a tab name from a request.
func ParseTab(s string) (Tab, bool) {
	switch Tab(s) {
	case TabHot, TabNew, TabTop, TabLegends, TabRising:
		return Tab(s), true
	}
	return "", false
}

// ValidateWishText checks the submission length bound. Length is counted
// in runes so multibyte text is not penalized.
func ValidateWishText(text string) error {
	n := utf8.RuneCountInString(text)
	if n < 1 || n > MaxWishLength {
		return ErrInvalidText
	}
	return nil
}
