package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdata-coss/agent-mcp/internal/metrics"
	"github.com/bigdata-coss/agent-mcp/internal/tools"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

type fixture struct {
	d       *Dispatcher
	m       *metrics.ToolMetrics
	calls   int
	gotArgs map[string]any
}

func newFixture(t *testing.T, handler tools.Handler) *fixture {
	t.Helper()
	f := &fixture{m: metrics.NewToolMetrics(prometheus.NewRegistry())}
	wrap := func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
		f.calls++
		f.gotArgs = args
		return handler(ctx, args)
	}
	reg, err := tools.NewBuilder().
		Add(tools.Descriptor{
			Name:        "needs_ab",
			Description: "requires a and b",
			InputSchema: tools.Object(tools.Props{"a": tools.Number("a"), "b": tools.Number("b")}, "a", "b"),
			Handler:     wrap,
		}).
		Add(tools.Descriptor{
			Name:        "free",
			Description: "no required arguments",
			InputSchema: tools.Object(tools.Props{}),
			Handler:     wrap,
		}).
		Build()
	require.NoError(t, err)
	f.d = New(reg, f.m, logr.Discard())
	return f
}

func ok(context.Context, map[string]any) (mcp.ToolResult, error) {
	return mcp.TextResult("done"), nil
}

func TestListTools(t *testing.T) {
	f := newFixture(t, ok)
	list := f.d.ListTools()
	require.Len(t, list, 2)
	assert.Equal(t, "needs_ab", list[0].Name)
	assert.Equal(t, "free", list[1].Name)
}

func TestUnknownTool(t *testing.T) {
	f := newFixture(t, ok)
	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "nope", Meta: map[string]any{"k": "v"}})
	assert.Equal(t, "Unknown tool: nope", res.Text())
	assert.Nil(t, res.Meta)
	assert.Zero(t, f.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.Calls.WithLabelValues("_unknown", metrics.OutcomeUnknownTool)))
}

func TestMissingRequiredArguments(t *testing.T) {
	f := newFixture(t, ok)
	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "needs_ab", Arguments: map[string]any{"a": 1}})
	assert.Equal(t, "Missing required arguments: b", res.Text())
	assert.Zero(t, f.calls)

	res = f.d.CallTool(context.Background(), mcp.ToolCall{Name: "needs_ab"})
	assert.Equal(t, "Missing required arguments: a, b", res.Text())
	assert.Zero(t, f.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.m.Calls.WithLabelValues("needs_ab", metrics.OutcomeInvalidArguments)))
}

func TestNullArgumentCountsAsPresent(t *testing.T) {
	f := newFixture(t, ok)
	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "needs_ab", Arguments: map[string]any{"a": nil, "b": "x"}})
	assert.Equal(t, "done", res.Text())
	assert.Equal(t, 1, f.calls)
}

func TestEmptyArgumentsInvokeHandler(t *testing.T) {
	f := newFixture(t, ok)
	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "free"})
	assert.Equal(t, "done", res.Text())
	assert.Equal(t, 1, f.calls)
	assert.NotNil(t, f.gotArgs)
	assert.Empty(t, f.gotArgs)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.Calls.WithLabelValues("free", metrics.OutcomeOK)))
}

func TestHandlerErrorBecomesText(t *testing.T) {
	f := newFixture(t, func(context.Context, map[string]any) (mcp.ToolResult, error) {
		return mcp.ToolResult{}, errors.New("OpenAI chat error: OPENAI_API_KEY is not set")
	})
	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "free"})
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.Equal(t, "OpenAI chat error: OPENAI_API_KEY is not set", res.Text())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.Calls.WithLabelValues("free", metrics.OutcomeFailed)))
}

func TestEmptyErrorMessageFallsBack(t *testing.T) {
	f := newFixture(t, func(context.Context, map[string]any) (mcp.ToolResult, error) {
		return mcp.ToolResult{}, errors.New("")
	})
	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "free"})
	assert.Equal(t, "unexpected error", res.Text())
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture(t, func(context.Context, map[string]any) (mcp.ToolResult, error) {
		panic("boom")
	})
	var res mcp.ToolResult
	require.NotPanics(t, func() {
		res = f.d.CallTool(context.Background(), mcp.ToolCall{Name: "free"})
	})
	assert.Equal(t, "boom", res.Text())
}

func TestRequestMetaReplacesHandlerMeta(t *testing.T) {
	f := newFixture(t, func(context.Context, map[string]any) (mcp.ToolResult, error) {
		r := mcp.TextResult("done")
		r.Meta = map[string]any{"handler": true}
		return r, nil
	})

	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "free", Meta: map[string]any{"progressToken": "t1"}})
	assert.Equal(t, map[string]any{"progressToken": "t1"}, res.Meta)

	res = f.d.CallTool(context.Background(), mcp.ToolCall{Name: "free"})
	assert.Equal(t, map[string]any{"handler": true}, res.Meta)
}

func TestMetaAttachedToFailures(t *testing.T) {
	f := newFixture(t, func(context.Context, map[string]any) (mcp.ToolResult, error) {
		return mcp.ToolResult{}, errors.New("bad")
	})
	res := f.d.CallTool(context.Background(), mcp.ToolCall{Name: "free", Meta: map[string]any{"k": 1}})
	assert.Equal(t, "bad", res.Text())
	assert.Equal(t, map[string]any{"k": 1}, res.Meta)
}

func TestNilMetrics(t *testing.T) {
	reg, err := tools.NewBuilder().Add(tools.Descriptor{Name: "x", InputSchema: tools.Object(tools.Props{}), Handler: ok}).Build()
	require.NoError(t, err)
	d := New(reg, nil, logr.Discard())
	assert.Equal(t, "done", d.CallTool(context.Background(), mcp.ToolCall{Name: "x"}).Text())
}
