package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/internal/domain/types"
)

// HeaderStale is set on /updated when the snapshot is older than the
// refresh interval.
const HeaderStale = "X-Snapshot-Stale"

// markerLayout is the wire format of the update timestamp.
const markerLayout = "2006-01-02 15:04:05"

// SnapshotHandler serves read-only views of the published snapshot.
type SnapshotHandler struct {
	deps Dependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps Dependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// view loads the snapshot for a GET request and writes the error response
// itself when it cannot.
func (h *SnapshotHandler) view(w http.ResponseWriter, r *http.Request) (*model.Snapshot, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return nil, false
	}
	snap, err := h.deps.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return snap, true
}

// HandleOrganization handles GET /organization.
func (h *SnapshotHandler) HandleOrganization(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Organization)
}

type updatedResponse struct {
	UpdatedAt string `json:"updated_at"`
	Stale     bool   `json:"stale"`
}

// HandleUpdated handles GET /updated.
func (h *SnapshotHandler) HandleUpdated(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.view(w, r)
	if !ok {
		return
	}
	stale := errors.Is(h.deps.Freshness(), model.ErrStaleSnapshot)
	w.Header().Set(HeaderStale, strconv.FormatBool(stale))
	w.Header().Set("Last-Modified", snap.UpdatedAt.UTC().Format(http.TimeFormat))
	writeJSON(w, http.StatusOK, updatedResponse{
		UpdatedAt: snap.UpdatedAt.Format(markerLayout),
		Stale:     stale,
	})
}

// HandleUsers handles GET /user.
func (h *SnapshotHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Members)
}

// HandleLevels handles GET /problem/level[?level_id=].
func (h *SnapshotHandler) HandleLevels(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.view(w, r)
	if !ok {
		return
	}
	id, filtered, err := intParam(r, "level_id")
	switch {
	case err != nil:
		writeDomainError(w, err)
	case !filtered:
		writeJSON(w, http.StatusOK, snap.Levels)
	default:
		level, found := snap.Level(id)
		if !found {
			writeDomainError(w, fmt.Errorf("%w: level %d", model.ErrNotFound, id))
			return
		}
		writeJSON(w, http.StatusOK, level)
	}
}

// HandleTags handles GET /problem/tag[?tag_id=].
func (h *SnapshotHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.view(w, r)
	if !ok {
		return
	}
	id, filtered, err := intParam(r, "tag_id")
	switch {
	case err != nil:
		writeDomainError(w, err)
	case !filtered:
		writeJSON(w, http.StatusOK, snap.Tags)
	default:
		tag, found := snap.Tag(id)
		if !found {
			writeDomainError(w, fmt.Errorf("%w: tag %d", model.ErrNotFound, id))
			return
		}
		writeJSON(w, http.StatusOK, tag)
	}
}

// HandleProblems handles GET /problem[?problem_id=].
func (h *SnapshotHandler) HandleProblems(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.view(w, r)
	if !ok {
		return
	}
	id, filtered, err := intParam(r, "problem_id")
	switch {
	case err != nil:
		writeDomainError(w, err)
	case !filtered:
		writeJSON(w, http.StatusOK, snap.Problems)
	default:
		p, found := snap.Problem(id)
		if !found {
			writeDomainError(w, fmt.Errorf("%w: problem %d", model.ErrNotFound, id))
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// HandleCompare handles GET /vs/high_school?hs_name=.
func (h *SnapshotHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.view(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("hs_name"))
	if name == "" {
		writeDomainError(w, fmt.Errorf("%w: hs_name is required", ErrBadRequest))
		return
	}
	opponent, found := snap.Peer(name)
	if !found {
		writeDomainError(w, fmt.Errorf("%w: organization %q", model.ErrNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, types.Compare(snap.Self(), opponent))
}
