// Package bridge exposes FGP daemons as MCP tools over newline-delimited
// JSON-RPC 2.0 on a byte stream (normally stdio).
//
// Tool catalogs are synthesized on every tools/list from whatever daemons
// are reachable at that moment; nothing is cached. tools/call resolves the
// target daemon from the tool name, auto-starting it when its socket is
// missing.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fgp-tools/fgp/internal/contracts"
	"github.com/fgp-tools/fgp/internal/domain"
	"github.com/fgp-tools/fgp/internal/fgpc"
)

// ProtocolVersion is the MCP protocol revision the bridge implements.
const ProtocolVersion = "2024-11-05"

// ServerName identifies the bridge to MCP clients.
const ServerName = "fgp-mcp-bridge"

// startPollInterval is how often the bridge re-checks reachability while
// waiting for an auto-started daemon.
const startPollInterval = 50 * time.Millisecond

// internalMethods are daemon built-ins that never surface as tools.
var internalMethods = map[string]struct{}{
	fgpc.MethodHealth:  {},
	fgpc.MethodStop:    {},
	fgpc.MethodMethods: {},
}

// defaultInputSchema is used for tools whose daemon method declares no
// parameter schema, and for meta-tools without arguments.
var defaultInputSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// nameArgSchema is the input schema for meta-tools taking a service name.
var nameArgSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {
			"type": "string",
			"description": "Name of the daemon"
		}
	},
	"required": ["name"]
}`)

// Bridge translates MCP requests into FGP daemon calls.
type Bridge struct {
	logger       hclog.Logger
	registry     contracts.ServiceRegistry
	dialer       contracts.DaemonDialer
	lifecycle    contracts.Lifecycle
	startTimeout time.Duration
	version      string
}

// NewBridge creates a bridge. startTimeout bounds the wait for an
// auto-started daemon to expose its socket.
func NewBridge(
	logger hclog.Logger,
	reg contracts.ServiceRegistry,
	dialer contracts.DaemonDialer,
	lc contracts.Lifecycle,
	startTimeout time.Duration,
	version string,
) (*Bridge, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if dialer == nil {
		return nil, fmt.Errorf("dialer cannot be nil")
	}
	if lc == nil {
		return nil, fmt.Errorf("lifecycle cannot be nil")
	}
	if startTimeout <= 0 {
		return nil, fmt.Errorf("start timeout must be positive")
	}

	return &Bridge{
		logger:       logger.Named("bridge"),
		registry:     reg,
		dialer:       dialer,
		lifecycle:    lc,
		startTimeout: startTimeout,
		version:      version,
	}, nil
}

// Serve reads one JSON-RPC request per line from r until EOF, writing one
// response line per request to w. Requests are handled strictly in arrival
// order; a slow daemon call stalls subsequent requests. Malformed lines
// produce a parse error response, never a loop exit.
func (b *Bridge) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := b.handleLine(ctx, line)
		if err := writeResponse(out, resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request stream: %w", err)
	}

	return nil
}

// writeResponse serializes a response as a single flushed line.
func writeResponse(out *bufio.Writer, resp rpcResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	if _, err := out.Write(payload); err != nil {
		return err
	}
	if err := out.WriteByte('\n'); err != nil {
		return err
	}

	return out.Flush()
}

// handleLine parses and dispatches one request line.
func (b *Bridge) handleLine(ctx context.Context, line []byte) rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		b.logger.Warn("discarding malformed request line", "error", err)
		return errorResponse(nil, CodeParseError, "Parse error")
	}

	b.logger.Debug("handling request", "method", req.Method)

	switch req.Method {
	case "initialize":
		return b.handleInitialize(req)
	case "tools/list":
		return b.handleToolsList(ctx, req)
	case "tools/call":
		return b.handleToolsCall(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found")
	}
}

// initializeResult is the payload answering an initialize request.
type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
	Capabilities    capabilities       `json:"capabilities"`
}

type capabilities struct {
	Tools struct{} `json:"tools"`
}

func (b *Bridge) handleInitialize(req rpcRequest) rpcResponse {
	return resultResponse(req.ID, initializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: mcp.Implementation{
			Name:    ServerName,
			Version: b.version,
		},
	})
}

// toolsListResult is the payload answering a tools/list request.
type toolsListResult struct {
	Tools []mcp.Tool `json:"tools"`
}

// handleToolsList synthesizes the tool catalog: one tool per advertised
// method of every reachable daemon, plus the fixed meta-tools. Daemons that
// are down or fail their method query contribute nothing; no error surfaces.
func (b *Bridge) handleToolsList(ctx context.Context, req rpcRequest) rpcResponse {
	tools := make([]mcp.Tool, 0, 8)

	for _, service := range b.registry.List() {
		if !b.registry.Reachable(service) {
			continue
		}
		tools = append(tools, b.serviceTools(ctx, service)...)
	}

	tools = append(tools, metaTools()...)

	return resultResponse(req.ID, toolsListResult{Tools: tools})
}

// serviceTools queries one daemon's method list and converts it to tool
// descriptors. Any failure yields zero tools for that daemon.
func (b *Bridge) serviceTools(ctx context.Context, service string) []mcp.Tool {
	client, err := b.dialer.Dial(b.registry.SocketPath(service))
	if err != nil {
		b.logger.Debug("skipping unreachable daemon", "service", service, "error", err)
		return nil
	}

	resp, err := client.Methods(ctx)
	if err != nil || !resp.OK {
		b.logger.Debug("skipping daemon with failing method query", "service", service, "error", err)
		return nil
	}

	var payload domain.MethodsPayload
	if err := json.Unmarshal(resp.Result, &payload); err != nil {
		b.logger.Debug("skipping daemon with malformed method list", "service", service, "error", err)
		return nil
	}

	tools := make([]mcp.Tool, 0, len(payload.Methods))
	for _, method := range payload.Methods {
		if _, internal := internalMethods[method.Name]; internal {
			continue
		}

		description := method.Description
		if description == "" {
			description = "No description"
		}

		schema := defaultInputSchema
		if len(method.Params) > 0 {
			schema = method.Params
		}

		tools = append(tools, mcp.Tool{
			Name:           EncodeToolName(service, method.Name),
			Description:    fmt.Sprintf("[FGP:%s] %s", service, description),
			RawInputSchema: schema,
		})
	}

	return tools
}

// metaTools returns the three fixed daemon-management tools.
func metaTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:           MetaToolListDaemons,
			Description:    "List all FGP daemons with their status",
			RawInputSchema: defaultInputSchema,
		},
		{
			Name:           MetaToolStartDaemon,
			Description:    "Start an FGP daemon",
			RawInputSchema: nameArgSchema,
		},
		{
			Name:           MetaToolStopDaemon,
			Description:    "Stop an FGP daemon",
			RawInputSchema: nameArgSchema,
		},
	}
}

// callParams are the parameters of a tools/call request.
type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// nameArgument extracts the "name" argument of the start/stop meta-tools.
type nameArgument struct {
	Name string `json:"name"`
}

func (b *Bridge) handleToolsCall(ctx context.Context, req rpcRequest) rpcResponse {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid tool call parameters")
	}

	switch params.Name {
	case MetaToolListDaemons:
		return b.handleListDaemons(ctx, req.ID)
	case MetaToolStartDaemon:
		return b.handleStartDaemon(req.ID, params.Arguments)
	case MetaToolStopDaemon:
		return b.handleStopDaemon(req.ID, params.Arguments)
	default:
		return b.handleDaemonCall(ctx, req.ID, params)
	}
}

// daemonStatus is one entry of the fgp_list_daemons output.
type daemonStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// handleListDaemons classifies every registry service as running, error or
// stopped based on socket presence and a health query.
func (b *Bridge) handleListDaemons(ctx context.Context, id json.RawMessage) rpcResponse {
	services := b.registry.List()
	daemons := make([]daemonStatus, 0, len(services))

	for _, service := range services {
		daemons = append(daemons, daemonStatus{
			Name:   service,
			Status: b.daemonStatus(ctx, service),
		})
	}

	text, err := json.MarshalIndent(daemons, "", "  ")
	if err != nil {
		return errorResponse(id, CodeInternalError, fmt.Sprintf("Failed to render daemon list: %s", err))
	}

	return resultResponse(id, mcp.NewToolResultText(string(text)))
}

func (b *Bridge) daemonStatus(ctx context.Context, service string) string {
	if !b.registry.Reachable(service) {
		return "stopped"
	}

	client, err := b.dialer.Dial(b.registry.SocketPath(service))
	if err != nil {
		return "error"
	}

	resp, err := client.Health(ctx)
	if err != nil || !resp.OK {
		return "error"
	}

	return "running"
}

func (b *Bridge) handleStartDaemon(id json.RawMessage, arguments json.RawMessage) rpcResponse {
	name, resp := requireNameArgument(id, arguments)
	if resp != nil {
		return *resp
	}

	if err := b.lifecycle.Start(name); err != nil {
		return errorResponse(id, CodeInternalError, fmt.Sprintf("Failed to start daemon: %s", err))
	}

	return resultResponse(id, mcp.NewToolResultText(fmt.Sprintf("Started daemon: %s", name)))
}

func (b *Bridge) handleStopDaemon(id json.RawMessage, arguments json.RawMessage) rpcResponse {
	name, resp := requireNameArgument(id, arguments)
	if resp != nil {
		return *resp
	}

	if err := b.lifecycle.Stop(name); err != nil {
		return errorResponse(id, CodeInternalError, fmt.Sprintf("Failed to stop daemon: %s", err))
	}

	return resultResponse(id, mcp.NewToolResultText(fmt.Sprintf("Stopped daemon: %s", name)))
}

func requireNameArgument(id json.RawMessage, arguments json.RawMessage) (string, *rpcResponse) {
	var arg nameArgument
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &arg); err != nil {
			resp := errorResponse(id, CodeInvalidParams, "Invalid tool arguments")
			return "", &resp
		}
	}

	if arg.Name == "" {
		resp := errorResponse(id, CodeInvalidParams, "Missing required argument: name")
		return "", &resp
	}

	return arg.Name, nil
}

// handleDaemonCall decodes fgp_<daemon>_<method>, auto-starts the daemon if
// its socket is missing, and relays the call.
func (b *Bridge) handleDaemonCall(ctx context.Context, id json.RawMessage, params callParams) rpcResponse {
	service, method, err := DecodeToolName(params.Name, b.registry.List())
	if err != nil {
		return errorResponse(id, CodeInvalidParams, "Invalid tool name format")
	}

	if !b.registry.Reachable(service) {
		if err := b.lifecycle.Start(service); err != nil {
			return errorResponse(id, CodeInternalError, fmt.Sprintf("Failed to start daemon: %s", err))
		}
		b.awaitReachable(ctx, service)
	}

	client, err := b.dialer.Dial(b.registry.SocketPath(service))
	if err != nil {
		return errorResponse(id, CodeInternalError, fmt.Sprintf("Failed to connect to daemon: %s", err))
	}

	resp, err := client.Call(ctx, method, params.Arguments)
	if err != nil {
		return errorResponse(id, CodeInternalError, fmt.Sprintf("Call failed: %s", err))
	}
	if !resp.OK {
		return errorResponse(id, CodeInternalError, resp.ErrorMessage())
	}

	return resultResponse(id, mcp.NewToolResultText(prettyResult(resp.Result)))
}

// awaitReachable polls for the daemon socket after an auto-start, giving up
// after the configured start timeout. The call proceeds either way; a daemon
// that never came up surfaces as a connect failure.
func (b *Bridge) awaitReachable(ctx context.Context, service string) {
	deadline := time.Now().Add(b.startTimeout)

	for time.Now().Before(deadline) {
		if b.registry.Reachable(service) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(startPollInterval):
		}
	}
}

// prettyResult renders a daemon result payload as indented JSON text.
func prettyResult(result json.RawMessage) string {
	if len(result) == 0 {
		return "null"
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		return string(result)
	}

	return buf.String()
}
