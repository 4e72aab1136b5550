package stripe

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

	"github.com/railzwaylabs/plansync/internal/event"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrExpiredSignature = errors.New("expired_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
)

const SignatureHeader = "Stripe-Signature"

type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookVerifier checks signatures with secret. A zero tolerance skips
// the timestamp age check.
func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    strings.TrimSpace(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

func (v *WebhookVerifier) Verify(payload []byte, sigHeader string) error {
	sigHeader = strings.TrimSpace(sigHeader)
	if sigHeader == "" || v.secret == "" {
		return ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignature(sigHeader)
	if err != nil {
		return ErrInvalidSignature
	}

	expected := Sign(v.secret, timestamp, payload)
	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return ErrInvalidSignature
	}

	if v.tolerance > 0 {
		sec, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return ErrInvalidSignature
		}
		if v.now().Sub(time.Unix(sec, 0)) > v.tolerance {
			return ErrExpiredSignature
		}
	}
	return nil
}

// Sign computes the v1 signature for payload sent at timestamp.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%s.%s", timestamp, string(payload))))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignature(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}

type stripeEvent struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Created  int64           `json:"created"`
	Livemode bool            `json:"livemode"`
	Data     stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

func ParseEvent(payload []byte) (*event.Event, error) {
	var raw stripeEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(raw.ID) == "" || strings.TrimSpace(raw.Type) == "" {
		return nil, ErrInvalidEvent
	}

	evt := &event.Event{
		ID:       raw.ID,
		Type:     strings.TrimSpace(raw.Type),
		Livemode: raw.Livemode,
		Object:   raw.Data.Object,
		Raw:      payload,
	}
	if raw.Created > 0 {
		evt.Created = time.Unix(raw.Created, 0).UTC()
	}
	return evt, nil
}
