package api

import (
	"net/http"
)

// RefreshHandler handles manual refresh requests.
type RefreshHandler struct {
	deps Dependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps Dependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

type refreshResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// HandleRefresh handles POST /refresh. It answers 202 when the refresh was
// queued and 429 when one is already pending.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, ok := h.deps.RequestRefresh(r.Context())
	if !ok {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{Status: "accepted", RequestID: req.ID})
}
