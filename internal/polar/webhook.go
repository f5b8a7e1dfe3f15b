package polar

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
)

// Event types this service reacts to. Everything else is acknowledged and
// ignored.
const (
	EventOrderCreated        = "order.created"
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionUpdated = "subscription.updated"
	EventProductCreated      = "product.created"
	EventProductUpdated      = "product.updated"
)

// Event is the webhook envelope: a type tag and the raw payload, which is
// only decoded once the type is known.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ValidateEvent verifies the Standard Webhooks signature on a Polar
// delivery and parses the envelope. No field of the payload may be trusted
// before this returns without error.
func ValidateEvent(payload []byte, header http.Header, secret string) (*Event, error) {
	wh, err := standardwebhooks.NewWebhook(encodeWebhookSecret(secret))
	if err != nil {
		return nil, fmt.Errorf("init webhook verifier: %w", err)
	}
	if err := wh.Verify(payload, header); err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("event has no type")
	}
	return &ev, nil
}

// SignEvent produces a valid signature header value for a payload. Test
// hook; real deliveries are signed by Polar.
func SignEvent(secret, msgID string, ts time.Time, payload []byte) (string, error) {
	wh, err := standardwebhooks.NewWebhook(encodeWebhookSecret(secret))
	if err != nil {
		return "", fmt.Errorf("init webhook signer: %w", err)
	}
	return wh.Sign(msgID, ts, payload)
}

// encodeWebhookSecret adapts a Polar webhook secret to what the
// standard-webhooks library expects: Polar issues raw secrets, the library
// wants the base64 form (optionally prefixed whsec_, already encoded).
func encodeWebhookSecret(secret string) string {
	if rest, ok := strings.CutPrefix(secret, "whsec_"); ok {
		return rest
	}
	return base64.StdEncoding.EncodeToString([]byte(secret))
}
