package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"wishing-well/internal/checkout"
	"wishing-well/internal/model"
)

// CheckoutService is the payment bridge surface the handler needs.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, priceID, token, returnURL string, metadata map[string]string) (string, error)
	Confirm(ctx context.Context, checkoutID string) (*model.Session, int, error)
	HandleEvent(ctx context.Context, event *checkout.Event) error
}

// CheckoutHandler handles checkout creation, payment confirmation, and the
// payment processor webhook.
type CheckoutHandler struct {
	checkouts     CheckoutService
	webhookSecret string
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkouts CheckoutService, webhookSecret string) *CheckoutHandler {
	return &CheckoutHandler{checkouts: checkouts, webhookSecret: webhookSecret}
}

type createCheckoutRequest struct {
	PriceID   string            `json:"price_id"`
	Token     string            `json:"token" binding:"required"`
	ReturnURL string            `json:"return_url" binding:"required"`
	Metadata  map[string]string `json:"metadata"`
}

// Create handles POST /v1/checkout and returns the hosted checkout URL.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": CodeInvalidInput})
		return
	}

	url, err := h.checkouts.CreateCheckout(c.Request.Context(), req.PriceID, req.Token, req.ReturnURL, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

type confirmRequest struct {
	CheckoutSessionID string `json:"session_id" binding:"required"`
}

// Confirm handles POST /v1/checkout/confirm: the browser lands back from the
// hosted checkout with a session id and asks the server to verify and credit.
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_code": CodeInvalidInput})
		return
	}

	session, credited, err := h.checkouts.Confirm(c.Request.Context(), req.CheckoutSessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"credited":         credited,
		"free_wish_used":   session.FreeWishUsed,
		"purchased_wishes": session.PurchasedWishes,
	})
}

// Webhook handles POST /v1/webhooks/stripe. The raw body is verified against
// the Stripe-Signature header before the event is acted on; everything past
// this point is trusted server-to-server.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload", "error_code": CodeInvalidInput})
		return
	}

	event, err := checkout.ParseEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret, time.Now())
	if err != nil {
		log.Warn().Err(err).Msg("Webhook rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed", "error_code": CodePaymentFailed})
		return
	}

	if err := h.checkouts.HandleEvent(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
