// internal/app/features/users/reports.go
package users

import (
	"net/http"

	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
)

// ServeAttendance handles GET /api/users/{id}/groups/{groupID}/attendance.
func (h *Handler) ServeAttendance(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	userID, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	groupID, err := respond.PathID(r, "groupID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "member attendance")
	defer cancel()

	rep, err := h.Coursework.MemberAttendance(ctx, p, userID, groupID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, rep)
}

// ServeTasks handles GET /api/users/{id}/groups/{groupID}/tasks.
func (h *Handler) ServeTasks(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	userID, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	groupID, err := respond.PathID(r, "groupID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "member tasks")
	defer cancel()

	rep, err := h.Coursework.MemberTasks(ctx, p, userID, groupID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, rep)
}
