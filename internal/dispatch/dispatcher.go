// Package dispatch runs one tool call end to end and always produces a
// response.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/metrics"
	"github.com/bigdata-coss/agent-mcp/internal/tools"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

const fallbackMessage = "unexpected error"

// Dispatcher serves the catalog to every transport.
type Dispatcher struct {
	registry *tools.Registry
	metrics  *metrics.ToolMetrics
	log      logr.Logger
	now      func() time.Time
}

var _ mcp.Dispatcher = (*Dispatcher)(nil)

// New returns a dispatcher. m may be nil.
func New(registry *tools.Registry, m *metrics.ToolMetrics, log logr.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, metrics: m, log: log.WithName("dispatch"), now: time.Now}
}

// ListTools returns the wire definitions in catalog order.
func (d *Dispatcher) ListTools() []mcp.Tool {
	return d.registry.Tools()
}

// CallTool resolves the tool, checks required arguments, runs the handler and
// flattens any failure into response text. Request metadata replaces the
// handler's metadata on every handler outcome.
func (d *Dispatcher) CallTool(ctx context.Context, call mcp.ToolCall) mcp.ToolResult {
	start := d.now()
	log := d.log.WithValues("tool", call.Name, "callID", uuid.NewString())

	desc, ok := d.registry.Find(call.Name)
	if !ok {
		log.Info("unknown tool")
		d.metrics.Record(call.Name, metrics.OutcomeUnknownTool, d.now().Sub(start))
		return mcp.TextResult(fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if missing := tools.ValidateRequired(desc, args); len(missing) > 0 {
		log.Info("missing required arguments", "missing", missing)
		d.metrics.Record(call.Name, metrics.OutcomeInvalidArguments, d.now().Sub(start))
		return mcp.TextResult("Missing required arguments: " + strings.Join(missing, ", "))
	}

	log.V(1).Info("calling tool")
	res, err := d.invoke(ctx, desc, args)
	elapsed := d.now().Sub(start)
	if err != nil {
		log.Error(err, "tool call failed", "kind", apierr.KindOf(err).String(), "elapsed", elapsed)
		d.metrics.Record(call.Name, metrics.OutcomeFailed, elapsed)
		res = mcp.TextResult(message(err))
	} else {
		log.V(1).Info("tool call finished", "elapsed", elapsed)
		d.metrics.Record(call.Name, metrics.OutcomeOK, elapsed)
	}
	if call.Meta != nil {
		res.Meta = call.Meta
	}
	return res
}

// invoke runs the handler, turning a panic into an unexpected failure.
func (d *Dispatcher) invoke(ctx context.Context, desc tools.Descriptor, args map[string]any) (res mcp.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(fmt.Errorf("%v", r), "tool handler panicked", "tool", desc.Name, "stack", string(debug.Stack()))
			res, err = mcp.ToolResult{}, apierr.Unexpected(fmt.Errorf("%v", r))
		}
	}()
	return desc.Handler(ctx, args)
}

func message(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallbackMessage
}
