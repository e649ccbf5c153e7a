// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/groups.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Catalog is public; admins see rosters and allow-lists.
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGroup)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/leave", h.HandleLeave)
		pr.Get("/{id}/lectures", h.ServeLectures)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole(models.RoleAdmin))

		// CRUD
		ar.Post("/", h.HandleCreate)
		ar.Put("/{id}", h.HandleUpdate)
		ar.Delete("/{id}", h.HandleDelete)

		// ALLOW-LIST
		ar.Get("/{id}/allowed-emails", h.ServeAllowedEmails)
		ar.Post("/{id}/allowed-emails", h.HandleAddAllowedEmails)
		ar.Put("/{id}/allowed-emails", h.HandleSetAllowedEmails)
		ar.Delete("/{id}/allowed-emails/{email}", h.HandleRemoveAllowedEmail)

		// ENROLLMENT REVIEW
		ar.Get("/{id}/requests", h.ServeRequests)
		ar.Post("/{id}/members/{userID}/approve", h.HandleApprove)
		ar.Post("/{id}/members/{userID}/reject", h.HandleReject)
		ar.Post("/{id}/members/{userID}/reset", h.HandleReset)
		ar.Post("/{id}/members/{userID}/special", h.HandleGrantSpecial)
		ar.Patch("/{id}/members/{userID}/special", h.HandleUpdateSpecial)
	})

	return r
}
