// Package domain holds the shared service state model used by the bridge
// and the watchdog.
package domain

import (
	"encoding/json"

	"github.com/fgp-tools/fgp/internal/contracts"
)

const (
	// StateRunning means the daemon answered its health check with a nominal status.
	StateRunning ServiceState = "running"

	// StateStopped means the service has no reachable endpoint.
	StateStopped ServiceState = "stopped"

	// StateUnhealthy means the daemon answered its health check but reported
	// a degraded status.
	StateUnhealthy ServiceState = "unhealthy"

	// StateError means the endpoint exists but the health query failed or
	// returned a non-ok response.
	StateError ServiceState = "error"
)

// ServiceState is the observed condition of a single service at one polling instant.
type ServiceState string

// HealthPayload is the result object of a daemon's health method.
type HealthPayload struct {
	Status string `json:"status"`
}

// MethodSpec describes one RPC method advertised by a daemon.
type MethodSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Params      json.RawMessage `json:"params,omitempty"`
}

// MethodsPayload is the result object of a daemon's methods method.
type MethodsPayload struct {
	Methods []MethodSpec `json:"methods"`
}

// ClassifyHealth maps a health response (or the error from obtaining one) to
// a service state for a service whose endpoint was reachable.
//
// Unknown status strings classify as running so that newer daemons reporting
// richer statuses are not flagged as failures.
func ClassifyHealth(resp *contracts.DaemonResponse, err error) ServiceState {
	if err != nil || resp == nil || !resp.OK {
		return StateError
	}

	var payload HealthPayload
	if len(resp.Result) > 0 {
		// A malformed payload leaves the status empty, which classifies as running.
		_ = json.Unmarshal(resp.Result, &payload)
	}

	switch payload.Status {
	case "degraded", "unhealthy":
		return StateUnhealthy
	default:
		return StateRunning
	}
}
