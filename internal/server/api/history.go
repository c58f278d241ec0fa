package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/toolgate/internal/store"
)

// HistoryHandler handles HTTP requests for the invocation history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type invocationResponse struct {
	ID         string `json:"id"`
	Tool       string `json:"tool"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type listHistoryResponse struct {
	Invocations []invocationResponse `json:"invocations"`
}

// ServeHTTP handles GET /api/history?limit=N.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	invocations, err := h.store.Invocations().Recent(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	response := listHistoryResponse{Invocations: make([]invocationResponse, 0, len(invocations))}
	for _, inv := range invocations {
		response.Invocations = append(response.Invocations, invocationResponse{
			ID:         inv.ID,
			Tool:       inv.Tool,
			Status:     inv.Status,
			DurationMs: inv.DurationMs,
			Error:      inv.Error,
			CreatedAt:  inv.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
