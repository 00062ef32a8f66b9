// Package fgpc implements the FGP daemon RPC client.
//
// Daemons listen on a unix socket and speak newline-delimited JSON: one
// request object per line in, one response envelope per line out. The
// built-in methods every daemon implements are health, methods and stop.
package fgpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/fgp-tools/fgp/internal/contracts"
	"github.com/fgp-tools/fgp/internal/errors"
)

const (
	// DefaultDialTimeout bounds how long connecting to a daemon socket may take.
	DefaultDialTimeout = 2 * time.Second

	// DefaultCallTimeout bounds a single RPC round trip when the caller's
	// context carries no deadline of its own.
	DefaultCallTimeout = 10 * time.Second
)

// MethodHealth, MethodMethods and MethodStop are the built-in methods every
// FGP daemon implements.
const (
	MethodHealth  = "health"
	MethodMethods = "methods"
	MethodStop    = "stop"
)

// request is the wire format for a daemon RPC request.
type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Dialer connects clients to daemon sockets.
type Dialer struct {
	dialTimeout time.Duration
	callTimeout time.Duration
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithDialTimeout overrides the socket connect timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(dl *Dialer) {
		dl.dialTimeout = d
	}
}

// WithCallTimeout overrides the default RPC round-trip timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(dl *Dialer) {
		dl.callTimeout = d
	}
}

// NewDialer creates a dialer with default timeouts, adjusted by opts.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		dialTimeout: DefaultDialTimeout,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial verifies that the daemon socket accepts connections and returns a
// client bound to it. Each subsequent RPC opens its own connection, so a
// Client stays valid across daemon restarts on the same socket.
func (d *Dialer) Dial(socketPath string) (contracts.DaemonClient, error) {
	conn, err := net.DialTimeout("unix", socketPath, d.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrDaemonUnreachable, socketPath, err)
	}
	_ = conn.Close()

	return &Client{
		socketPath:  socketPath,
		dialTimeout: d.dialTimeout,
		callTimeout: d.callTimeout,
	}, nil
}

// Client performs RPC calls against one daemon socket.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// Health queries the daemon's built-in health method.
func (c *Client) Health(ctx context.Context) (*contracts.DaemonResponse, error) {
	return c.roundTrip(ctx, MethodHealth, nil)
}

// Methods queries the daemon's advertised RPC methods.
func (c *Client) Methods(ctx context.Context) (*contracts.DaemonResponse, error) {
	return c.roundTrip(ctx, MethodMethods, nil)
}

// Call invokes a daemon method by name with the given JSON arguments.
func (c *Client) Call(ctx context.Context, method string, args json.RawMessage) (*contracts.DaemonResponse, error) {
	return c.roundTrip(ctx, method, args)
}

// roundTrip writes one request line and reads one response line on a fresh
// connection.
func (c *Client) roundTrip(ctx context.Context, method string, params json.RawMessage) (*contracts.DaemonResponse, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrDaemonUnreachable, c.socketPath, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.callTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set connection deadline: %w", err)
	}

	payload, err := json.Marshal(request{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request for method '%s': %w", method, err)
	}
	payload = append(payload, '\n')

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: write failed: %w", errors.ErrDaemonUnreachable, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("%w: read failed: %w", errors.ErrDaemonUnreachable, err)
	}

	var resp contracts.DaemonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %w", errors.ErrDaemonUnreachable, err)
	}

	return &resp, nil
}
