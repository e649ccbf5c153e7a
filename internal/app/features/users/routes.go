// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/password/forgot", h.HandleForgotPassword)
	r.Post("/password/reset", h.HandleResetPassword)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		// SELF
		pr.Get("/me", h.ServeSelf)
		pr.Patch("/me", h.HandleUpdateProfile)
		pr.Post("/me/feedback", h.HandleSubmitFeedback)
		pr.Post("/me/verify", h.HandleVerifyEmail)
		pr.Post("/me/verify/resend", h.HandleResendVerification)

		// SELF OR ADMIN
		pr.Get("/{id}", h.ServeUser)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Get("/{id}/groups/{groupID}/attendance", h.ServeAttendance)
		pr.Get("/{id}/groups/{groupID}/tasks", h.ServeTasks)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole(models.RoleAdmin))

		ar.Get("/", h.ServeList)
		ar.Post("/", h.HandleCreateUser)
		ar.Get("/feedback", h.ServeFeedback)
		ar.Delete("/{id}/feedback", h.HandleDeleteFeedback)
		ar.Patch("/{id}/role", h.HandleUpdateRole)
	})

	return r
}
