package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func TestVerifySignature_RoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()

	header := SignPayload(payload, testWebhookSecret, now)
	assert.NoError(t, VerifySignature(payload, header, testWebhookSecret, now))
}

func TestVerifySignature_RejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := SignPayload(payload, testWebhookSecret, now)
	err := VerifySignature([]byte(`{"id":"evt_2"}`), header, testWebhookSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_RejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := SignPayload(payload, "whsec_other", now)
	err := VerifySignature(payload, header, testWebhookSecret, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_RejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := SignPayload(payload, testWebhookSecret, now.Add(-10*time.Minute))
	err := VerifySignature(payload, header, testWebhookSecret, now)
	assert.ErrorIs(t, err, ErrSignatureExpired)

	// Just inside the tolerance is fine
	header = SignPayload(payload, testWebhookSecret, now.Add(-4*time.Minute))
	assert.NoError(t, VerifySignature(payload, header, testWebhookSecret, now))
}

func TestVerifySignature_RejectsMalformedHeader(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()

	for _, header := range []string{
		"",
		"t=123",
		"v1=deadbeef",
		"t=notanumber,v1=deadbeef",
		"garbage",
	} {
		err := VerifySignature(payload, header, testWebhookSecret, now)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"payment_status": "paid",
				"metadata": {"session_token": "session_abc", "price_id": "price_boost_25p"}
			}
		}
	}`)
	now := time.Now()
	header := SignPayload(payload, testWebhookSecret, now)

	event, err := ParseEvent(payload, header, testWebhookSecret, now)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)

	cs := event.Data.Object
	assert.Equal(t, "cs_test_1", cs.ID)
	assert.True(t, cs.Paid())
	assert.Equal(t, "session_abc", cs.SessionToken())
	assert.Equal(t, "price_boost_25p", cs.PriceID())
}

func TestParseEvent_BadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	_, err := ParseEvent(payload, "t=1,v1=bogus", testWebhookSecret, time.Now())
	assert.Error(t, err)
}
