package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wishing-well/internal/model"
	"wishing-well/internal/service"
)

// WishService is the wish surface the handler needs.
type WishService interface {
	Submit(ctx context.Context, token, text string) (*model.Wish, error)
	Feed(ctx context.Context, tab model.Tab, limit, offset int) ([]*model.Wish, error)
}

// BoostService is the boost pipeline surface the handler needs.
type BoostService interface {
	Boost(ctx context.Context, token, wishID string) (*model.Wish, error)
	Cooldown() time.Duration
}

// WishHandler handles wish submission, feeds, and boosts.
type WishHandler struct {
	wishes WishService
	boosts BoostService
}

// NewWishHandler creates a new WishHandler.
func NewWishHandler(wishes WishService, boosts BoostService) *WishHandler {
	return &WishHandler{wishes: wishes, boosts: boosts}
}

type submitRequest struct {
	Token string `json:"token" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

// Submit handles POST /v1/wishes.
func (h *WishHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": CodeInvalidInput})
		return
	}

	wish, err := h.wishes.Submit(c.Request.Context(), req.Token, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, wish)
}

// Feed handles GET /v1/wishes?tab=&limit=&offset=.
func (h *WishHandler) Feed(c *gin.Context) {
	tabName := c.DefaultQuery("tab", string(model.TabHot))
	tab, ok := model.ParseTab(tabName)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tab: " + tabName, "error_code": CodeInvalidInput})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	wishes, err := h.wishes.Feed(c.Request.Context(), tab, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	if wishes == nil {
		wishes = []*model.Wish{}
	}
	c.JSON(http.StatusOK, gin.H{"tab": tab, "wishes": wishes})
}

type boostRequest struct {
	Token string `json:"token" binding:"required"`
}

// Boost handles POST /v1/wishes/:id/boost. Rate-limited responses carry a
// Retry-After hint with the cooldown.
func (h *WishHandler) Boost(c *gin.Context) {
	wishID := c.Param("id")

	var req boostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": CodeInvalidInput})
		return
	}

	wish, err := h.boosts.Boost(c.Request.Context(), req.Token, wishID)
	if err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			c.Header("Retry-After", strconv.Itoa(int(h.boosts.Cooldown().Seconds())))
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "boosts": wish.Boosts})
}
