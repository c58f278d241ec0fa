// Package dispatch resolves and executes tools/call requests against plugin
// subprocesses for the Toolgate gateway.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ayusman/toolgate/internal/plugin"
	"github.com/ayusman/toolgate/internal/rpc"
)

// Resolver is the registry surface the dispatcher needs: qualified name to
// (plugin, command) target, plus the snapshot for tools/list.
type Resolver interface {
	Lookup(qualifiedName string) (plugin.Target, error)
	Current() *plugin.Snapshot
}

// Recorder receives one record per completed dispatch. Implementations must
// not block the dispatch path.
type Recorder interface {
	RecordInvocation(tool string, arguments json.RawMessage, status string, duration time.Duration, errText string)
}

// Config holds dispatcher configuration.
type Config struct {
	Resolver Resolver
	// ExecTimeout bounds each plugin subprocess. Zero means the invoker
	// default.
	ExecTimeout time.Duration
	// Recorder optionally logs invocations to the history store.
	Recorder Recorder
	Logger   hclog.Logger
}

// Dispatcher turns JSON-RPC requests into plugin invocations and their
// outcomes into JSON-RPC responses. It holds no per-request state, so any
// number of Dispatch calls may run concurrently.
type Dispatcher struct {
	resolver Resolver
	invoker  *plugin.Invoker
	recorder Recorder
	logger   hclog.Logger
}

// New creates a Dispatcher with the given configuration.
func New(config Config) *Dispatcher {
	logger := config.Logger
	if logger == nil {
		logger = hclog.Default()
	}
	return &Dispatcher{
		resolver: config.Resolver,
		invoker:  plugin.NewInvoker(config.ExecTimeout),
		recorder: config.Recorder,
		logger:   logger.Named("dispatch"),
	}
}

// DispatchRaw parses a raw JSON-RPC message body and dispatches it. Parse
// failures yield a -32700 response; every request gets exactly one response.
func (d *Dispatcher) DispatchRaw(ctx context.Context, body []byte) *rpc.Response {
	var req rpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return rpc.NewError(nil, rpc.CodeParseError, "parse error: invalid JSON")
	}
	return d.Dispatch(ctx, &req)
}

// Dispatch validates the envelope, resolves the method, and executes it.
func (d *Dispatcher) Dispatch(ctx context.Context, req *rpc.Request) *rpc.Response {
	if req.JSONRPC != rpc.Version || req.Method == "" || len(req.ID) == 0 {
		return rpc.NewError(req.ID, rpc.CodeInvalidRequest, "invalid request envelope")
	}

	switch req.Method {
	case rpc.MethodToolsCall:
		return d.dispatchCall(ctx, req)
	case rpc.MethodToolsList:
		return rpc.NewResult(req.ID, rpc.BuildManifest(d.resolver.Current()))
	default:
		return rpc.NewError(req.ID, rpc.CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (d *Dispatcher) dispatchCall(ctx context.Context, req *rpc.Request) *rpc.Response {
	var params rpc.CallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return rpc.NewError(req.ID, rpc.CodeInvalidParams, "invalid params: missing tool name")
	}

	arguments := map[string]any{}
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &arguments); err != nil {
			return rpc.NewError(req.ID, rpc.CodeInvalidParams, "invalid params: arguments must be an object")
		}
	}

	target, err := d.resolver.Lookup(params.Name)
	if err != nil {
		return rpc.NewError(req.ID, rpc.CodeMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name))
	}

	start := time.Now()
	result, err := d.invoker.Invoke(ctx, target, arguments)
	elapsed := time.Since(start)

	if err != nil {
		d.record(params, "error", elapsed, err.Error())
		return d.errorResponse(req.ID, params.Name, err)
	}

	d.record(params, "ok", elapsed, "")
	return rpc.NewResult(req.ID, rpc.NewTextResult(renderResult(result)))
}

// errorResponse maps invocation failures onto the protocol error taxonomy.
// Both plugin-reported errors and execution failures surface as internal
// errors; the distinction lives in the message.
func (d *Dispatcher) errorResponse(id json.RawMessage, tool string, err error) *rpc.Response {
	var pluginErr *plugin.PluginError
	if errors.As(err, &pluginErr) {
		d.logger.Debug("plugin reported error", "tool", tool, "error", pluginErr.Message)
		return rpc.NewError(id, rpc.CodeInternalError, pluginErr.Message)
	}
	d.logger.Warn("tool execution failed", "tool", tool, "error", err)
	return rpc.NewError(id, rpc.CodeInternalError, fmt.Sprintf("tool execution failed: %v", err))
}

func (d *Dispatcher) record(params rpc.CallParams, status string, duration time.Duration, errText string) {
	if d.recorder == nil {
		return
	}
	d.recorder.RecordInvocation(params.Name, params.Arguments, status, duration, errText)
}

// renderResult extracts the text payload from a plugin's stdout object. A
// "result" key is preferred; a string result is used verbatim, anything else
// is compact JSON. Without a "result" key the whole object is returned.
func renderResult(res *plugin.Result) string {
	raw, ok := res.Output["result"]
	if !ok {
		return string(res.Raw)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
