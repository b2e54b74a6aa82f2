package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crewbase/crewbase/internal/platform/httpx"
)

// Handler serves the recent-changes feed.
type Handler struct {
	logger *slog.Logger
	feed   *Feed
}

// NewHandler builds the audit feed handler.
func NewHandler(logger *slog.Logger, feed *Feed) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, feed: feed}
}

// MountRoutes registers the feed route under /projects.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{projectID}/permissions/changes", h.RecentChanges)
}

type changesResponse struct {
	Changes []Change `json:"changes"`
}

// RecentChanges handles GET /projects/{projectID}/permissions/changes.
func (h *Handler) RecentChanges(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Project", "project id must be numeric")
		return
	}

	changes, err := h.feed.Recent(r.Context(), projectID)
	if err != nil {
		h.logger.Error("read recent changes", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Dependency Unavailable", "recent changes feed unreachable")
		return
	}
	if changes == nil {
		changes = []Change{}
	}
	httpx.JSON(w, http.StatusOK, changesResponse{Changes: changes})
}
