package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Stripe API errors.
var (
	ErrNoCheckoutURL = errors.New("stripe returned no checkout url")
)

// PaymentStatusPaid is the checkout session payment_status value that allows
// crediting.
const PaymentStatusPaid = "paid"

// MetadataSessionToken is the metadata key carrying the quota session token
// through the checkout round trip.
const MetadataSessionToken = "session_token"

// Session is the subset of a Stripe Checkout Session this service reads.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// Paid reports whether the payment behind the session completed.
func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// SessionToken returns the quota session token carried in metadata.
func (s *Session) SessionToken() string {
	return s.Metadata[MetadataSessionToken]
}

// PriceID returns the purchased price id carried in metadata.
func (s *Session) PriceID() string {
	return s.Metadata["price_id"]
}

// apiError mirrors Stripe's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Stripe REST API. The integration surface is two calls:
// create a hosted checkout session and retrieve one by id.
type Client struct {
	secretKey  string
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a Stripe API client. apiBase is overridable for tests.
func NewClient(secretKey, apiBase string) *Client {
	if apiBase == "" {
		apiBase = "https://api.stripe.com"
	}
	return &Client{
		secretKey: secretKey,
		apiBase:   strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateSessionParams are the inputs to CreateSession.
type CreateSessionParams struct {
	PriceID      string
	SessionToken string
	ReturnURL    string
	Metadata     map[string]string
}

// CreateSession creates a hosted checkout session and returns it. The quota
// session token always travels in metadata so the webhook and the confirm
// flow can credit the right session.
func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.ReturnURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", params.ReturnURL)
	form.Set("metadata["+MetadataSessionToken+"]", params.SessionToken)
	form.Set("metadata[price_id]", params.PriceID)
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	return &session, nil
}

// GetSession retrieves a checkout session by id, used by the confirm flow to
// verify payment status server-side.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return fmt.Errorf("failed to build stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe %s %s: %s (%s)", method, path, apiErr.Error.Message, apiErr.Error.Type)
		}
		return fmt.Errorf("stripe %s %s: status %d", method, path, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return nil
}
