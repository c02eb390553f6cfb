package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"wishing-well/internal/config"
)

// HealthChecker reports backing store health for the healthz endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies bundles everything the router wires together.
type Dependencies struct {
	Config   *config.Config
	Sessions SessionService
	Wishes   WishService
	Boosts   BoostService
	Checkout CheckoutService
	Health   HealthChecker
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps *Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestLogger(),
		CORS(deps.Config.Server.AllowedOrigin),
		Throttle(deps.Config.Server.RequestsPerSec, deps.Config.Server.RequestBurst),
	)

	sessionHandler := NewSessionHandler(deps.Sessions)
	wishHandler := NewWishHandler(deps.Wishes, deps.Boosts)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, deps.Config.Stripe.WebhookSecret)

	router.GET("/healthz", func(c *gin.Context) {
		if err := deps.Health.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/session", sessionHandler.GetOrCreate)
		v1.POST("/wishes", wishHandler.Submit)
		v1.GET("/wishes", wishHandler.Feed)
		v1.POST("/wishes/:id/boost", wishHandler.Boost)
		v1.POST("/checkout", checkoutHandler.Create)
		v1.POST("/checkout/confirm", checkoutHandler.Confirm)
		v1.POST("/webhooks/stripe", checkoutHandler.Webhook)
	}

	return router
}
