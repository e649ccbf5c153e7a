// internal/app/features/users/feedback.go
package users

import (
	"net/http"

	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
)

// HandleSubmitFeedback handles POST /api/users/me/feedback. A later
// submission replaces the earlier one.
func (h *Handler) HandleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	var body struct {
		Feedback string `json:"feedback"`
	}
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit feedback")
	defer cancel()

	if err := h.Accounts.SubmitFeedback(ctx, p, body.Feedback); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "feedback received")
}

// ServeFeedback handles GET /api/users/feedback.
func (h *Handler) ServeFeedback(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list feedback")
	defer cancel()

	list, err := h.Accounts.ListFeedback(ctx, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, list)
}

// HandleDeleteFeedback handles DELETE /api/users/{id}/feedback.
func (h *Handler) HandleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete feedback")
	defer cancel()

	if err := h.Accounts.DeleteFeedback(ctx, p, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "feedback deleted")
}
