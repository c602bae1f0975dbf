// Package deploy drives deployments on the hosting platform.
//
// It triggers builds through a deploy hook URL, reads the latest deployment
// state from the platform API and authenticates lifecycle webhooks.
package deploy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned when a required URL or credential is empty.
var ErrNotConfigured = errors.New("deployment is not configured")

// State is the lifecycle state of a deployment.
type State string

const (
	StateQueued   State = "queued"
	StateBuilding State = "building"
	StateReady    State = "ready"
	StateError    State = "error"
	// StateUnknown is reported for webhook events outside the lifecycle.
	StateUnknown State = "unknown"
)

// platformState maps the platform's readyState values.
func platformState(s string) State {
	switch strings.ToUpper(s) {
	case "QUEUED", "INITIALIZING":
		return StateQueued
	case "BUILDING":
		return StateBuilding
	case "ERROR", "CANCELED":
		return StateError
	default:
		return StateReady
	}
}

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("deploy platform: %d %s", e.StatusCode, e.Body)
}
