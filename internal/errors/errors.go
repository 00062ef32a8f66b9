// Package errors defines domain-level errors used throughout the application.
// These errors represent failures talking to FGP daemons and are mapped to
// JSON-RPC error codes at the bridge boundary.
package errors

import (
	"errors"
)

var (
	// ErrServiceNotFound indicates that the named service is not installed in the registry.
	ErrServiceNotFound = errors.New("service not found")

	// ErrDaemonUnreachable indicates that a daemon's socket could not be connected to.
	ErrDaemonUnreachable = errors.New("daemon unreachable")

	// ErrInvalidToolName indicates that an MCP tool name could not be decoded into
	// a daemon and method pair.
	ErrInvalidToolName = errors.New("invalid tool name format")

	// ErrLifecycleFailed indicates that starting or stopping a service failed.
	ErrLifecycleFailed = errors.New("lifecycle operation failed")

	// ErrConfigLoadFailed indicates the config file could not be loaded or validated.
	ErrConfigLoadFailed = errors.New("config load failed")

	// ErrManifestLoadFailed indicates a service manifest could not be loaded or validated.
	ErrManifestLoadFailed = errors.New("service manifest load failed")
)
