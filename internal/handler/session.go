package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"wishing-well/internal/model"
)

// SessionService is the quota ledger surface the session handler needs.
type SessionService interface {
	GetOrCreate(ctx context.Context, token string) (*model.Session, error)
}

// SessionHandler handles session identity and quota reads.
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionRequest struct {
	Token string `json:"token" binding:"required"`
}

// GetOrCreate handles POST /v1/session. The client-generated token is
// upserted; the response is the authoritative credit state the client should
// treat its local copy as a cache of.
func (h *SessionHandler) GetOrCreate(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": CodeInvalidInput})
		return
	}

	session, err := h.sessions.GetOrCreate(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":            session.Token,
		"free_wish_used":   session.FreeWishUsed,
		"purchased_wishes": session.PurchasedWishes,
		"credits":          session.CreditsRemaining(),
	})
}
