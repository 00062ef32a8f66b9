// Package contracts defines the seams between the bridge/watchdog core and
// the capabilities it consumes: the service registry, the per-daemon RPC
// client, service lifecycle control and user notifications.
package contracts

import (
	"context"
	"encoding/json"
)

// DaemonError is the error payload a daemon attaches to a non-ok response.
type DaemonError struct {
	Message string `json:"message"`
}

// DaemonResponse is the tagged success/failure envelope every daemon RPC
// returns. OK distinguishes daemon-reported failure from transport failure,
// which surfaces as a Go error instead.
type DaemonResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *DaemonError    `json:"error,omitempty"`
}

// ErrorMessage returns the daemon-supplied error message, or a fallback when
// the daemon omitted one.
func (r *DaemonResponse) ErrorMessage() string {
	if r != nil && r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return "Unknown error"
}

// ServiceRegistry lists installed services and resolves them to endpoints.
type ServiceRegistry interface {
	// List returns the names of all installed services.
	// A missing or unreadable registry yields an empty list, not an error.
	List() []string

	// SocketPath returns the daemon socket path for the named service.
	// The path is derived deterministically from the name; the service need not exist.
	SocketPath(name string) string

	// Reachable reports whether the named service currently has a connectable endpoint.
	Reachable(name string) bool
}

// DaemonClient performs RPC calls against a single daemon endpoint.
type DaemonClient interface {
	// Health queries the daemon's built-in health method.
	Health(ctx context.Context) (*DaemonResponse, error)

	// Methods queries the daemon's advertised RPC methods.
	Methods(ctx context.Context) (*DaemonResponse, error)

	// Call invokes a daemon method by name with the given JSON arguments.
	Call(ctx context.Context, method string, args json.RawMessage) (*DaemonResponse, error)
}

// DaemonDialer connects DaemonClients to endpoints.
type DaemonDialer interface {
	// Dial connects to the daemon listening on the given socket path.
	Dial(socketPath string) (DaemonClient, error)
}

// Lifecycle starts and stops installed services.
type Lifecycle interface {
	Start(name string) error
	Stop(name string) error
}

// Notifier delivers fire-and-forget user notifications.
type Notifier interface {
	Notify(title string, message string)
}
