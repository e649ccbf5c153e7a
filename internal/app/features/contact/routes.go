// internal/app/features/contact/routes.go
package contact

import (
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/contact.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleSubmit)

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole(models.RoleAdmin))
		ar.Get("/", h.ServeList)
		ar.Post("/{id}/reply", h.HandleReply)
		ar.Delete("/{id}", h.HandleDelete)
	})
	return r
}
