package permissions

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crewbase/crewbase/internal/platform/httpx"
)

// WriteCounter counts committed override replacements.
type WriteCounter interface {
	RecordOverrideWrite()
}

// Handler exposes the engine over HTTP. Authentication happens upstream;
// the acting user arrives in the X-Actor-Id header.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	writes   WriteCounter
}

// NewHandler builds the permissions HTTP handler. writes may be nil.
func NewHandler(logger *slog.Logger, service *Service, writes WriteCounter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New(), writes: writes}
}

type overrideDTO struct {
	Permission string `json:"permission" validate:"required"`
	Granted    bool   `json:"granted"`
}

type memberPermissionsResponse struct {
	Role                 string        `json:"role"`
	EffectivePermissions []Kind        `json:"effectivePermissions"`
	Overrides            []overrideDTO `json:"overrides"`
}

type matrixMemberResponse struct {
	MemberID             int64  `json:"memberId"`
	DisplayName          string `json:"displayName"`
	Role                 string `json:"role"`
	EffectivePermissions []Kind `json:"effectivePermissions"`
}

type matrixResponse struct {
	Members []matrixMemberResponse `json:"members"`
}

type effectiveResponse struct {
	EffectivePermissions []Kind `json:"effectivePermissions"`
}

// GetMatrix handles GET /projects/{projectID}/permissions/matrix.
func (h *Handler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Project", "project id must be numeric")
		return
	}

	rows, err := h.service.GetMatrix(r.Context(), projectID)
	if err != nil {
		h.respondError(w, "get matrix", err)
		return
	}

	members := make([]matrixMemberResponse, 0, len(rows))
	for _, row := range rows {
		members = append(members, matrixMemberResponse{
			MemberID:             row.MemberID,
			DisplayName:          row.DisplayName,
			Role:                 row.Role,
			EffectivePermissions: row.Effective,
		})
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Members: members})
}

// GetMemberPermissions handles
// GET /projects/{projectID}/members/{memberID}/permissions.
func (h *Handler) GetMemberPermissions(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Project", "project id must be numeric")
		return
	}
	memberID, err := pathID(r, "memberID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Member", "member id must be numeric")
		return
	}

	result, err := h.service.GetMemberPermissions(r.Context(), projectID, memberID)
	if err != nil {
		h.respondError(w, "get member permissions", err)
		return
	}

	// Registry kinds first in registry order, then inert kinds sorted by
	// name. A stored row whose kind left the registry is still listed;
	// hiding it would let a GET then PUT round-trip silently delete it.
	overrides := make([]overrideDTO, 0, len(result.Overrides))
	for _, kind := range h.service.registry.Kinds() {
		if granted, ok := result.Overrides[kind]; ok {
			overrides = append(overrides, overrideDTO{Permission: string(kind), Granted: granted})
		}
	}
	inert := make([]string, 0)
	for kind := range result.Overrides {
		if !h.service.registry.Contains(kind) {
			inert = append(inert, string(kind))
		}
	}
	sort.Strings(inert)
	for _, kind := range inert {
		overrides = append(overrides, overrideDTO{Permission: kind, Granted: result.Overrides[Kind(kind)]})
	}
	httpx.JSON(w, http.StatusOK, memberPermissionsResponse{
		Role:                 result.Role,
		EffectivePermissions: result.Effective,
		Overrides:            overrides,
	})
}

// SetMemberOverrides handles
// PUT /projects/{projectID}/members/{memberID}/permissions. The body is
// the member's complete new override list; an empty array clears all
// overrides and reverts the member to role defaults.
func (h *Handler) SetMemberOverrides(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Project", "project id must be numeric")
		return
	}
	memberID, err := pathID(r, "memberID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Member", "member id must be numeric")
		return
	}
	actor, err := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)
	if err != nil || actor <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Missing Actor", "X-Actor-Id header is required")
		return
	}

	var body []overrideDTO
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "expected a JSON array of override entries")
		return
	}
	if err := h.validate.Var(body, "dive"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "every entry requires a permission name")
		return
	}

	entries := make([]OverrideEntry, len(body))
	for i, dto := range body {
		entries[i] = OverrideEntry{Permission: Kind(dto.Permission), Granted: dto.Granted}
	}

	effective, err := h.service.SetMemberOverrides(r.Context(), projectID, memberID, entries, actor)
	if err != nil {
		h.respondError(w, "set member overrides", err)
		return
	}
	if h.writes != nil {
		h.writes.RecordOverrideWrite()
	}
	httpx.JSON(w, http.StatusOK, effectiveResponse{EffectivePermissions: effective})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var unknownKind UnknownKindError
	switch {
	case errors.Is(err, ErrProjectNotFound):
		httpx.Problem(w, http.StatusNotFound, "Project Not Found", err.Error())
	case errors.Is(err, ErrMemberNotFound):
		httpx.Problem(w, http.StatusNotFound, "Member Not Found", err.Error())
	case errors.As(err, &unknownKind):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Permission Kind", unknownKind.Error())
	case errors.Is(err, ErrDependencyUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Dependency Unavailable", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
