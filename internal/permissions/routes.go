package permissions

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the engine's routes under /projects.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{projectID}/permissions/matrix", h.GetMatrix)
	r.Get("/{projectID}/members/{memberID}/permissions", h.GetMemberPermissions)
	r.Put("/{projectID}/members/{memberID}/permissions", h.SetMemberOverrides)
}
