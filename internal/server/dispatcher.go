package server

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

// Method is a JSON-RPC method the gateway understands.
type Method string

const (
	MethodInitialize  Method = "initialize"
	MethodInitialized Method = "notifications/initialized"
	MethodPing        Method = "ping"
	MethodToolsList   Method = "tools/list"
	MethodToolsCall   Method = "tools/call"
)

// supportedProtocolVersions are echoed back when a client asks for them.
var supportedProtocolVersions = []string{
	"2024-11-05",
	"2025-03-26",
	"2025-06-18",
	mcp.LATEST_PROTOCOL_VERSION,
}

// ToolCaller lists and invokes tools.
type ToolCaller interface {
	List() []mcp.Tool
	Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Dispatcher routes JSON-RPC requests to their handlers.
type Dispatcher struct {
	tools ToolCaller
	info  mcp.Implementation
	dev   bool
}

// NewDispatcher creates a dispatcher that serves tools and identifies itself
// as info. dev exposes fault detail in error responses.
func NewDispatcher(tools ToolCaller, info mcp.Implementation, dev bool) *Dispatcher {
	return &Dispatcher{tools: tools, info: info, dev: dev}
}

type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      mcp.Implementation `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    map[string]any     `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

type toolsListResult struct {
	Tools []mcp.Tool `json:"tools"`
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Dispatch handles req. session is nil on the single-endpoint transport. The
// returned response is nil for notifications, whose side effects still run.
func (d *Dispatcher) Dispatch(ctx context.Context, session *Session, req *Request) *Response {
	result, err := d.handle(ctx, session, req)
	if req.IsNotification() {
		if err != nil {
			logging.Debug("Session", "Notification %s failed: %v", req.Method, err)
		}
		return nil
	}
	if err != nil {
		d.logFault(req, err)
		return faultResponse(req.ID, err, d.dev)
	}
	return resultResponse(req.ID, result)
}

func (d *Dispatcher) handle(ctx context.Context, session *Session, req *Request) (any, error) {
	switch Method(req.Method) {
	case MethodInitialize:
		var params initializeParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		version := mcp.LATEST_PROTOCOL_VERSION
		if slices.Contains(supportedProtocolVersions, params.ProtocolVersion) {
			version = params.ProtocolVersion
		}
		if params.ClientInfo.Name != "" {
			logging.Info("Session", "Client %s %s initializing (protocol %s)",
				params.ClientInfo.Name, params.ClientInfo.Version, version)
		}
		return initializeResult{
			ProtocolVersion: version,
			Capabilities: map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			ServerInfo: d.info,
		}, nil

	case MethodInitialized:
		if session != nil {
			session.MarkInitialized()
		}
		return struct{}{}, nil

	case MethodPing:
		return struct{}{}, nil

	case MethodToolsList:
		return toolsListResult{Tools: d.tools.List()}, nil

	case MethodToolsCall:
		var params toolsCallParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		if params.Name == "" {
			return nil, fault.New(fault.KindUnknownMethod, "tools/call requires params.name")
		}
		return d.tools.Call(ctx, params.Name, params.Arguments)

	default:
		return nil, fault.Newf(fault.KindUnknownMethod, "method not found: %s", req.Method)
	}
}

func decodeParams(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fault.Wrap(fault.KindValidation, err, "invalid params")
	}
	return nil
}

func (d *Dispatcher) logFault(req *Request, err error) {
	switch fault.KindOf(err) {
	case fault.KindUnknownMethod, fault.KindValidation:
		logging.Debug("Session", "%s rejected: %v", req.Method, err)
	case fault.KindInternal, fault.KindDecryption, fault.KindPersistence, fault.KindConfiguration:
		logging.Error("Session", err, "%s failed", req.Method)
	default:
		logging.Warn("Session", "%s failed: %v", req.Method, err)
	}
}
