// internal/app/features/groups/enrollment.go
package groups

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/classhub/internal/app/services/enrollment"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type joinPayload struct {
	RequestType models.RequestType `json:"request_type"`
	Note        string             `json:"note"`
}

type specialPayload struct {
	Lectures []string `json:"lectures"`
}

type specialUpdatePayload struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// HandleJoin handles POST /api/groups/{id}/join. The body is optional.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body joinPayload
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &body); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "join group")
	defer cancel()

	m, err := h.Enrollment.RequestJoin(ctx, p, enrollment.JoinRequest{
		GroupID:     id,
		RequestType: body.RequestType,
		Note:        body.Note,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, m)
}

// HandleLeave handles POST /api/groups/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "leave group")
	defer cancel()

	if err := h.Enrollment.Leave(ctx, p, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "left group")
}

// ServeLectures handles GET /api/groups/{id}/lectures.
func (h *Handler) ServeLectures(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list lectures")
	defer cancel()

	lectures, err := h.Coursework.ListLectures(ctx, p, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, lectures)
}

// ServeRequests handles GET /api/groups/{id}/requests?status=pending.
func (h *Handler) ServeRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	status := models.MembershipStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	if status != "" && !status.Valid() {
		respond.Fail(w, apperr.Validation, "unknown status")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list requests")
	defer cancel()

	reqs, err := h.Enrollment.ListRequests(ctx, p, id, status)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, reqs)
}

// HandleApprove handles POST /api/groups/{id}/members/{userID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve membership", h.Enrollment.Approve)
}

// HandleReset handles POST /api/groups/{id}/members/{userID}/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reset membership", h.Enrollment.ResetToPending)
}

// HandleReject handles POST /api/groups/{id}/members/{userID}/reject. The
// membership is removed so the user may ask again.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	groupID, userID, err := memberPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reject membership")
	defer cancel()

	if err := h.Enrollment.Reject(ctx, p, userID, groupID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "request rejected")
}

// HandleGrantSpecial handles POST /api/groups/{id}/members/{userID}/special.
func (h *Handler) HandleGrantSpecial(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	groupID, userID, err := memberPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body specialPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	lectures, err := respond.IDs(body.Lectures)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "grant special")
	defer cancel()

	m, err := h.Enrollment.GrantSpecial(ctx, p, userID, groupID, lectures)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, m)
}

// HandleUpdateSpecial handles PATCH /api/groups/{id}/members/{userID}/special.
func (h *Handler) HandleUpdateSpecial(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	groupID, userID, err := memberPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body specialUpdatePayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	add, err := respond.IDs(body.Add)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	remove, err := respond.IDs(body.Remove)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update special")
	defer cancel()

	m, err := h.Enrollment.UpdateSpecial(ctx, p, userID, groupID, add, remove)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, m)
}

type transitionFunc func(context.Context, authz.Principal, primitive.ObjectID, primitive.ObjectID) (models.Membership, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, apply transitionFunc) {
	p, _ := authz.FromRequest(r)
	groupID, userID, err := memberPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	m, err := apply(ctx, p, userID, groupID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, m)
}

func memberPath(r *http.Request) (groupID, userID primitive.ObjectID, err error) {
	if groupID, err = respond.PathID(r, "id"); err != nil {
		return
	}
	userID, err = respond.PathID(r, "userID")
	return
}
