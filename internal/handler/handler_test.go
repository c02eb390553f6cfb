package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishing-well/internal/checkout"
	"wishing-well/internal/config"
	"wishing-well/internal/model"
	"wishing-well/internal/service"
)

const testWebhookSecret = "whsec_test_secret"

// ============================================================================
// Service stubs
// ============================================================================

type stubSessions struct {
	session *model.Session
	err     error
}

func (s *stubSessions) GetOrCreate(context.Context, string) (*model.Session, error) {
	return s.session, s.err
}

type stubWishes struct {
	wish   *model.Wish
	feed   []*model.Wish
	err    error
	gotTab model.Tab
}

func (s *stubWishes) Submit(context.Context, string, string) (*model.Wish, error) {
	return s.wish, s.err
}

func (s *stubWishes) Feed(_ context.Context, tab model.Tab, _, _ int) ([]*model.Wish, error) {
	s.gotTab = tab
	return s.feed, s.err
}

type stubBoosts struct {
	wish *model.Wish
	err  error
}

func (s *stubBoosts) Boost(context.Context, string, string) (*model.Wish, error) {
	return s.wish, s.err
}

func (s *stubBoosts) Cooldown() time.Duration { return 60 * time.Second }

type stubCheckout struct {
	url      string
	session  *model.Session
	credited int
	err      error
	events   []*checkout.Event
}

func (s *stubCheckout) CreateCheckout(context.Context, string, string, string, map[string]string) (string, error) {
	return s.url, s.err
}

func (s *stubCheckout) Confirm(context.Context, string) (*model.Session, int, error) {
	return s.session, s.credited, s.err
}

func (s *stubCheckout) HandleEvent(_ context.Context, event *checkout.Event) error {
	s.events = append(s.events, event)
	return s.err
}

type stubHealth struct{ err error }

func (s *stubHealth) HealthCheck(context.Context) error { return s.err }

type routerStubs struct {
	sessions *stubSessions
	wishes   *stubWishes
	boosts   *stubBoosts
	checkout *stubCheckout
	health   *stubHealth
}

func newTestRouter(t *testing.T) (*gin.Engine, *routerStubs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stubs := &routerStubs{
		sessions: &stubSessions{session: &model.Session{Token: "session_abc"}},
		wishes:   &stubWishes{},
		boosts:   &stubBoosts{},
		checkout: &stubCheckout{},
		health:   &stubHealth{},
	}

	cfg := &config.Config{}
	cfg.Server.AllowedOrigin = "https://app.example.com"
	cfg.Stripe.WebhookSecret = testWebhookSecret

	router := NewRouter(&Dependencies{
		Config:   cfg,
		Sessions: stubs.sessions,
		Wishes:   stubs.wishes,
		Boosts:   stubs.boosts,
		Checkout: stubs.checkout,
		Health:   stubs.health,
	})
	return router, stubs
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// ============================================================================
// Session endpoint
// ============================================================================

func TestSessionEndpoint(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.sessions.session = &model.Session{Token: "session_abc", FreeWishUsed: false, PurchasedWishes: 3}

	w := doJSON(router, http.MethodPost, "/v1/session", gin.H{"token": "session_abc"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "session_abc", body["token"])
	assert.Equal(t, float64(4), body["credits"])
}

func TestSessionEndpoint_MissingToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/session", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidInput, decodeBody(t, w)["error_code"])
}

// ============================================================================
// Wish endpoints
// ============================================================================

func TestSubmitEndpoint(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.wishes.wish = &model.Wish{ID: "w1", Text: "a wish", IsPublic: true}

	w := doJSON(router, http.MethodPost, "/v1/wishes", gin.H{"token": "session_abc", "text": "a wish"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "a wish", decodeBody(t, w)["text"])
}

func TestSubmitEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"no credits", service.ErrNoCreditsAvailable, http.StatusPaymentRequired, CodeNoCredits},
		{"bad text", model.ErrInvalidText, http.StatusBadRequest, CodeInvalidInput},
		{"bad token", service.ErrInvalidToken, http.StatusBadRequest, CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, stubs := newTestRouter(t)
			stubs.wishes.err = tt.err

			w := doJSON(router, http.MethodPost, "/v1/wishes", gin.H{"token": "session_abc", "text": "x"})
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, decodeBody(t, w)["error_code"])
		})
	}
}

func TestFeedEndpoint(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.wishes.feed = []*model.Wish{{ID: "w1", Text: "first"}, {ID: "w2", Text: "second"}}

	w := doJSON(router, http.MethodGet, "/v1/wishes?tab=top&limit=2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.TabTop, stubs.wishes.gotTab)

	body := decodeBody(t, w)
	assert.Equal(t, "top", body["tab"])
	assert.Len(t, body["wishes"], 2)
}

func TestFeedEndpoint_DefaultsToHot(t *testing.T) {
	router, stubs := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/wishes", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.TabHot, stubs.wishes.gotTab)

	// An empty feed serializes as [], not null
	assert.Contains(t, w.Body.String(), `"wishes":[]`)
}

func TestFeedEndpoint_UnknownTab(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/wishes?tab=trending", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidInput, decodeBody(t, w)["error_code"])
}

func TestBoostEndpoint(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.boosts.wish = &model.Wish{ID: "w1", Boosts: 5}

	w := doJSON(router, http.MethodPost, "/v1/wishes/w1/boost", gin.H{"token": "session_abc"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(5), body["boosts"])
}

func TestBoostEndpoint_RateLimited(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.boosts.err = service.ErrRateLimited

	w := doJSON(router, http.MethodPost, "/v1/wishes/w1/boost", gin.H{"token": "session_abc"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, decodeBody(t, w)["error_code"])
}

func TestBoostEndpoint_NotFound(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.boosts.err = service.ErrWishNotFound

	w := doJSON(router, http.MethodPost, "/v1/wishes/missing/boost", gin.H{"token": "session_abc"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))
}

// ============================================================================
// Checkout endpoints
// ============================================================================

func TestCheckoutCreateEndpoint(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.checkout.url = "https://checkout.stripe.test/c/pay/cs_1"

	w := doJSON(router, http.MethodPost, "/v1/checkout", gin.H{
		"token":      "session_abc",
		"return_url": "https://app.example.com/thanks",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://checkout.stripe.test/c/pay/cs_1", decodeBody(t, w)["url"])
}

func TestCheckoutCreateEndpoint_MissingReturnURL(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/checkout", gin.H{"token": "session_abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutConfirmEndpoint(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.checkout.session = &model.Session{Token: "session_abc", PurchasedWishes: 10}
	stubs.checkout.credited = 10

	w := doJSON(router, http.MethodPost, "/v1/checkout/confirm", gin.H{"session_id": "cs_1"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(10), body["credited"])
	assert.Equal(t, float64(10), body["purchased_wishes"])
}

func TestCheckoutConfirmEndpoint_Unpaid(t *testing.T) {
	router, stubs := newTestRouter(t)
	stubs.checkout.err = service.ErrPaymentNotCompleted

	w := doJSON(router, http.MethodPost, "/v1/checkout/confirm", gin.H{"session_id": "cs_1"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, CodePaymentFailed, decodeBody(t, w)["error_code"])
}

// ============================================================================
// Webhook endpoint
// ============================================================================

func TestWebhookEndpoint(t *testing.T) {
	router, stubs := newTestRouter(t)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid","metadata":{"session_token":"session_abc"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", checkout.SignPayload(payload, testWebhookSecret, time.Now()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, stubs.checkout.events, 1)
	assert.Equal(t, "evt_1", stubs.checkout.events[0].ID)
	assert.Equal(t, "cs_1", stubs.checkout.events[0].Data.Object.ID)
}

func TestWebhookEndpoint_BadSignature(t *testing.T) {
	router, stubs := newTestRouter(t)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stubs.checkout.events, "unverified events must not reach the service")
}

// ============================================================================
// Middleware and health
// ============================================================================

func TestHealthz(t *testing.T) {
	router, stubs := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	stubs.health.err = context.DeadlineExceeded
	w = doJSON(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/wishes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestThrottle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Throttle(1, 2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2], "burst exhausted")

	// A different client gets its own bucket
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
