// Verifies and decodes deployment lifecycle webhooks.

package deploy

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // G505: the platform signs webhooks with HMAC-SHA1
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA1 of the raw request body.
const SignatureHeader = "X-Vercel-Signature"

// VerifySignature reports whether header is the HMAC-SHA1 of body under
// secret. The comparison is constant time.
func VerifySignature(body []byte, header, secret string) bool {
	if header == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the signature header value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Event is a decoded deployment webhook.
type Event struct {
	ID            string
	Type          string
	CreatedAt     time.Time
	DeploymentID  string
	DeploymentURL string
	State         State
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var raw struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		CreatedAt int64  `json:"createdAt"`
		Payload   struct {
			Deployment struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"deployment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if raw.Type == "" {
		return nil, errors.New("invalid webhook payload: missing type")
	}
	e := &Event{
		ID:            raw.ID,
		Type:          raw.Type,
		DeploymentID:  raw.Payload.Deployment.ID,
		DeploymentURL: raw.Payload.Deployment.URL,
		State:         eventState(raw.Type),
	}
	if raw.CreatedAt != 0 {
		e.CreatedAt = time.UnixMilli(raw.CreatedAt).UTC()
	}
	return e, nil
}

func eventState(typ string) State {
	switch typ {
	case "deployment.created":
		return StateBuilding
	case "deployment.succeeded", "deployment.ready":
		return StateReady
	case "deployment.error", "deployment.canceled":
		return StateError
	default:
		return StateUnknown
	}
}
