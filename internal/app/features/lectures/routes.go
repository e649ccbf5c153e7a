// internal/app/features/lectures/routes.go
package lectures

import (
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/lectures.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/{id}", h.ServeLecture)
		pr.Post("/{id}/attend", h.HandleAttend)

		pr.Get("/{id}/tasks", h.ServeTasks)
		pr.Get("/{id}/tasks/{taskID}", h.ServeTask)
		pr.Post("/{id}/tasks/{taskID}/submit", h.HandleSubmit)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(auth.RequireRole(models.RoleAdmin))

		// LECTURES
		ar.Post("/", h.HandleCreate)
		ar.Patch("/{id}", h.HandleUpdate)
		ar.Delete("/{id}", h.HandleDelete)
		ar.Get("/{id}/attendance", h.ServeAttendance)

		// TASKS
		ar.Post("/{id}/tasks", h.HandleCreateTask)
		ar.Patch("/{id}/tasks/{taskID}", h.HandleUpdateTask)
		ar.Delete("/{id}/tasks/{taskID}", h.HandleDeleteTask)
		ar.Get("/{id}/tasks/{taskID}/submissions", h.ServeSubmissions)
		ar.Post("/{id}/tasks/{taskID}/submissions/{userID}/grade", h.HandleGrade)
	})

	return r
}
