package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook verification errors.
var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrSignatureExpired = errors.New("webhook signature timestamp outside tolerance")
)

// EventCheckoutCompleted is the only webhook event type this service acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// signatureTolerance bounds how old a signed webhook may be before it is
// rejected as a replay.
const signatureTolerance = 5 * time.Minute

// Event is a Stripe webhook event envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Session `json:"object"`
	} `json:"data"`
}

// VerifySignature checks a Stripe-Signature header against the raw payload.
// The header carries a unix timestamp and one or more HMAC-SHA256 signatures
// of "<timestamp>.<payload>" under the endpoint secret.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrSignatureExpired
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// ParseEvent verifies the signature and decodes the event payload.
func ParseEvent(payload []byte, header, secret string, now time.Time) (*Event, error) {
	if err := VerifySignature(payload, header, secret, now); err != nil {
		return nil, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return &event, nil
}

// SignPayload produces a Stripe-Signature header value for a payload.
// Exported for tests and local tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
