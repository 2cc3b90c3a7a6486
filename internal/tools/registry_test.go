package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"fitgate/internal/cache"
	"fitgate/internal/fault"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	noop := func(context.Context, map[string]any) (any, error) { return nil, nil }

	r.Register(mcp.NewTool("b"), noop)
	r.Register(mcp.NewTool("a"), noop)
	r.Register(mcp.NewTool("c"), noop)
	r.Register(mcp.NewTool("a", mcp.WithDescription("replaced")), noop)

	var names []string
	for _, def := range r.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Equal(t, "replaced", r.List()[1].Description)
	assert.True(t, r.Has("c"))
	assert.False(t, r.Has("d"))
}

func TestRegistry_CallUnknownTool(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Call(context.Background(), "get_nothing", nil)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindUnknownMethod))
	assert.Contains(t, err.Error(), "get_nothing")
}

func TestRegistry_CallEncodesResult(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(mcp.NewTool("echo"), func(_ context.Context, args map[string]any) (any, error) {
		return map[string]any{"got": args["value"]}, nil
	})

	res, err := r.Call(context.Background(), "echo", map[string]any{"value": "x"})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &decoded))
	assert.Equal(t, "x", decoded["got"])
}

func TestRegistry_CallPassesFaultsThrough(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(mcp.NewTool("fails"), func(context.Context, map[string]any) (any, error) {
		return nil, fault.New(fault.KindReauthenticationRequired, "token revoked")
	})

	_, err := r.Call(context.Background(), "fails", nil)
	assert.True(t, fault.Is(err, fault.KindReauthenticationRequired))
}

func TestRegistry_CachesResults(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := cache.New(time.Minute, clk)
	r := NewRegistry(c)

	calls := 0
	r.Register(mcp.NewTool("count"), func(context.Context, map[string]any) (any, error) {
		calls++
		return calls, nil
	})

	args := map[string]any{"start_date": "2026-02-01"}
	first, err := r.Call(context.Background(), "count", args)
	require.NoError(t, err)
	second, err := r.Call(context.Background(), "count", args)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, resultText(t, first), resultText(t, second))

	// Different arguments miss.
	_, err = r.Call(context.Background(), "count", map[string]any{"start_date": "2026-02-02"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	clk.Step(2 * time.Minute)
	third, err := r.Call(context.Background(), "count", args)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "3", resultText(t, third))
}

func TestRegistry_ErrorsAreNotCached(t *testing.T) {
	c := cache.New(time.Minute, nil)
	r := NewRegistry(c)

	calls := 0
	r.Register(mcp.NewTool("flaky"), func(context.Context, map[string]any) (any, error) {
		calls++
		if calls == 1 {
			return nil, fault.New(fault.KindUpstreamUnavailable, "down")
		}
		return "ok", nil
	})

	_, err := r.Call(context.Background(), "flaky", nil)
	require.Error(t, err)
	res, err := r.Call(context.Background(), "flaky", nil)
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, resultText(t, res))
	assert.Equal(t, 2, calls)
}

func TestRegistry_ResolveKeysCacheAndFeedsHandler(t *testing.T) {
	r := NewRegistry(cache.New(time.Minute, nil))

	var seen []map[string]any
	r.Add(Tool{
		Definition: mcp.NewTool("resolved"),
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			seen = append(seen, args)
			return "ok", nil
		},
		Resolve: func(args map[string]any) (map[string]any, error) {
			if args["day"] == "bad" {
				return nil, fault.New(fault.KindValidation, "bad day")
			}
			return map[string]any{"day": "2026-03-01"}, nil
		},
	})

	_, err := r.Call(context.Background(), "resolved", nil)
	require.NoError(t, err)
	_, err = r.Call(context.Background(), "resolved", map[string]any{"ignored": true})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, map[string]any{"day": "2026-03-01"}, seen[0])

	_, err = r.Call(context.Background(), "resolved", map[string]any{"day": "bad"})
	assert.True(t, fault.Is(err, fault.KindValidation))
}

func TestRegistry_AuthorizeGuardsCacheHits(t *testing.T) {
	r := NewRegistry(cache.New(time.Minute, nil))

	var denied error
	calls := 0
	r.Add(Tool{
		Definition: mcp.NewTool("guarded"),
		Handler: func(context.Context, map[string]any) (any, error) {
			calls++
			return calls, nil
		},
		Authorize: func(context.Context) error { return denied },
	})

	_, err := r.Call(context.Background(), "guarded", nil)
	require.NoError(t, err)
	_, err = r.Call(context.Background(), "guarded", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	denied = fault.New(fault.KindNotAuthenticated, "disconnected")
	_, err = r.Call(context.Background(), "guarded", nil)
	assert.True(t, fault.Is(err, fault.KindNotAuthenticated))
	assert.Equal(t, 1, calls)
}
