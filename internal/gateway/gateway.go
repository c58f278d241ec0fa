// Package gateway composes the plugin registry, session manager, and tool
// dispatcher into the Toolgate service core.
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ayusman/toolgate/internal/dispatch"
	"github.com/ayusman/toolgate/internal/plugin"
	"github.com/ayusman/toolgate/internal/rpc"
	"github.com/ayusman/toolgate/internal/session"
	"github.com/ayusman/toolgate/internal/store"
)

// Config holds configuration options for the gateway.
type Config struct {
	// PluginDir is the directory scanned for plugin executables.
	PluginDir string
	// ExecTimeout bounds each plugin invocation. Zero means the default.
	ExecTimeout time.Duration
	// Store optionally records invocation history. Nil disables recording.
	Store  *store.Store
	Logger hclog.Logger
}

// Health is the gateway's health accounting snapshot.
type Health struct {
	Plugins  int
	Sessions int
}

// Gateway owns the registry lifecycle and the session reap loop, and exposes
// the two transport-facing operations: opening a streaming session and
// dispatching a message.
type Gateway struct {
	config     Config
	logger     hclog.Logger
	registry   *plugin.Registry
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher
	recorder   *storeRecorder
}

// New creates a Gateway. Start must be called before serving traffic.
func New(config Config) *Gateway {
	logger := config.Logger
	if logger == nil {
		logger = hclog.Default()
	}

	g := &Gateway{
		config:   config,
		logger:   logger,
		registry: plugin.NewRegistry(config.PluginDir, logger),
		sessions: session.NewManager(logger),
	}

	var recorder dispatch.Recorder
	if config.Store != nil {
		g.recorder = newStoreRecorder(config.Store, logger)
		recorder = g.recorder
	}
	g.dispatcher = dispatch.New(dispatch.Config{
		Resolver:    g.registry,
		ExecTimeout: config.ExecTimeout,
		Recorder:    recorder,
		Logger:      logger,
	})

	return g
}

// Start performs the initial plugin scan and launches the session reap loop
// and the invocation recorder.
func (g *Gateway) Start() error {
	if _, err := g.registry.Scan(); err != nil {
		return err
	}
	go g.sessions.Run()
	if g.recorder != nil {
		go g.recorder.run()
	}
	return nil
}

// Stop terminates the session reap loop and flushes queued invocation
// records.
func (g *Gateway) Stop() {
	g.sessions.Stop()
	if g.recorder != nil {
		g.recorder.stop()
	}
}

// Health reports plugin and live session counts.
func (g *Gateway) Health() Health {
	return Health{
		Plugins:  g.registry.Count(),
		Sessions: g.sessions.LiveCount(),
	}
}

// OpenSession creates a streaming session. Its first event is the manifest
// notification reflecting the registry snapshot current at this call.
func (g *Gateway) OpenSession() *session.Session {
	manifest := rpc.BuildManifest(g.registry.Current())
	payload, _ := json.Marshal(rpc.Notification{
		JSONRPC: rpc.Version,
		Method:  rpc.MethodToolsChanged,
		Params:  manifest,
	})
	return g.sessions.Open(payload)
}

// CloseSession marks a session for reclamation after its transport reports
// disconnection.
func (g *Gateway) CloseSession(sessionID string) {
	g.sessions.Close(sessionID)
}

// OnMessage dispatches a raw JSON-RPC message body and returns the single
// response for it.
func (g *Gateway) OnMessage(ctx context.Context, body []byte) *rpc.Response {
	return g.dispatcher.DispatchRaw(ctx, body)
}

// Rescan rebuilds the manifest from the plugins directory and notifies live
// sessions. Lookups racing the rescan see the old or new snapshot, never a
// partial one.
func (g *Gateway) Rescan() error {
	snap, err := g.registry.Scan()
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(rpc.Notification{
		JSONRPC: rpc.Version,
		Method:  rpc.MethodToolsChanged,
		Params:  rpc.BuildManifest(snap),
	})
	g.sessions.Broadcast(payload)
	return nil
}

// Registry exposes the plugin registry for read-side consumers.
func (g *Gateway) Registry() *plugin.Registry {
	return g.registry
}

// recordQueueSize bounds how many invocation records may wait for the
// recorder goroutine. Overflow drops the record rather than stalling a
// dispatch.
const recordQueueSize = 64

// storeRecorder persists dispatch records on a single worker goroutine so a
// slow disk never delays a response and burst load never fans out writers.
type storeRecorder struct {
	store  *store.Store
	logger hclog.Logger
	queue  chan *store.Invocation

	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func newStoreRecorder(st *store.Store, logger hclog.Logger) *storeRecorder {
	return &storeRecorder{
		store:  st,
		logger: logger,
		queue:  make(chan *store.Invocation, recordQueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (r *storeRecorder) RecordInvocation(tool string, arguments json.RawMessage, status string, duration time.Duration, errText string) {
	inv := &store.Invocation{
		ID:         uuid.New().String(),
		Tool:       tool,
		Arguments:  arguments,
		Status:     status,
		DurationMs: duration.Milliseconds(),
		Error:      errText,
	}
	select {
	case r.queue <- inv:
	default:
		r.logger.Warn("invocation record dropped, queue full", "tool", tool)
	}
}

// run writes queued records until stop is called, then drains what is
// buffered before returning.
func (r *storeRecorder) run() {
	defer close(r.done)
	for {
		select {
		case inv := <-r.queue:
			r.write(inv)
		case <-r.quit:
			for {
				select {
				case inv := <-r.queue:
					r.write(inv)
				default:
					return
				}
			}
		}
	}
}

// stop terminates the worker and waits for its final drain.
func (r *storeRecorder) stop() {
	r.stopOnce.Do(func() { close(r.quit) })
	<-r.done
}

func (r *storeRecorder) write(inv *store.Invocation) {
	if err := r.store.Invocations().Create(inv); err != nil {
		r.logger.Warn("failed to record invocation", "tool", inv.Tool, "error", err)
	}
}
