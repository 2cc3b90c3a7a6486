package tools

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"fitgate/internal/cache"
	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

// HandlerFunc produces a tool result. The value is serialized as indented
// JSON text content.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// ResolveFunc maps raw arguments onto the values that determine a tool's
// result, with defaults filled in. It also validates them.
type ResolveFunc func(args map[string]any) (map[string]any, error)

// Tool is a registered tool definition and its handler.
type Tool struct {
	Definition mcp.Tool
	Handler    HandlerFunc

	// Resolve, when set, replaces the raw arguments both for the cache key
	// and for the handler call.
	Resolve ResolveFunc

	// Authorize runs before a cached result is served, so cached data is
	// never returned to a caller who could not fetch it again.
	Authorize func(ctx context.Context) error
}

// Registry maps tool names to handlers, in registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*Tool

	cache *cache.Cache
}

// NewRegistry creates an empty registry. Results are cached in c when it is
// non-nil.
func NewRegistry(c *cache.Cache) *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
		cache: c,
	}
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(def mcp.Tool, handler HandlerFunc) {
	r.Add(Tool{Definition: def, Handler: handler})
}

// Add registers t, replacing any tool with the same name.
func (r *Registry) Add(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Definition.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = &t
	logging.Debug("Tools", "Registered tool %s", name)
}

// List returns the tool definitions in registration order.
func (r *Registry) List() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Call runs the named tool. An unknown name is an unknown method fault;
// resolver, authorization and handler faults are returned unchanged.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fault.Newf(fault.KindUnknownMethod, "unknown tool: %s", name)
	}

	if tool.Resolve != nil {
		resolved, err := tool.Resolve(args)
		if err != nil {
			return nil, err
		}
		args = resolved
	}

	key := cache.Key(name, args)
	if r.cache != nil {
		if cached, hit := r.cache.Get(key); hit {
			if tool.Authorize != nil {
				if err := tool.Authorize(ctx); err != nil {
					return nil, err
				}
			}
			logging.Debug("Tools", "Cache hit for %s", name)
			return mcp.NewToolResultText(string(cached)), nil
		}
	}

	value, err := tool.Handler(ctx, args)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "failed to encode tool result")
	}
	if r.cache != nil {
		r.cache.Set(key, data)
	}
	return mcp.NewToolResultText(string(data)), nil
}
