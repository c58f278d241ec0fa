// Package api provides HTTP API handlers for the Toolgate gateway.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/toolgate/internal/gateway"
	"github.com/ayusman/toolgate/internal/rpc"
)

// PluginsHandler handles HTTP requests for the plugin inventory.
type PluginsHandler struct {
	gateway *gateway.Gateway
}

// NewPluginsHandler creates a new PluginsHandler backed by the gateway.
func NewPluginsHandler(g *gateway.Gateway) *PluginsHandler {
	return &PluginsHandler{gateway: g}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods.
func (h *PluginsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/plugins or /api/plugins/rescan
	path := strings.TrimPrefix(r.URL.Path, "/api/plugins")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
	case "rescan":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.rescan(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

type pluginResponse struct {
	Name     string `json:"name"`
	Commands int    `json:"commands"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
	Tools   []rpc.Tool       `json:"tools"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// list returns the current plugin inventory and the derived manifest.
func (h *PluginsHandler) list(w http.ResponseWriter, _ *http.Request) {
	snap := h.gateway.Registry().Current()

	response := listPluginsResponse{
		Plugins: make([]pluginResponse, 0, len(snap.Plugins)),
		Tools:   rpc.BuildManifest(snap).Tools,
	}
	for _, p := range snap.Plugins {
		response.Plugins = append(response.Plugins, pluginResponse{
			Name:     p.Name,
			Commands: len(p.Commands),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// rescan rebuilds the plugin snapshot from the plugins directory.
func (h *PluginsHandler) rescan(w http.ResponseWriter, _ *http.Request) {
	if err := h.gateway.Rescan(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"plugins": h.gateway.Health().Plugins})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
