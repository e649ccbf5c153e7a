// internal/app/features/lectures/lectures.go
package lectures

import (
	"net/http"

	"github.com/dalemusser/classhub/internal/app/services/coursework"
	lecturestore "github.com/dalemusser/classhub/internal/app/store/lectures"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createPayload struct {
	GroupID     string   `json:"group_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Article     string   `json:"article"`
	Resources   []string `json:"resources"`
}

type updatePayload struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Article     *string  `json:"article"`
	Resources   []string `json:"resources"`
}

// HandleCreate handles POST /api/lectures. Approved members of the group get
// an absent attendance entry for the new lecture.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	var body createPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	groupID, err := primitive.ObjectIDFromHex(body.GroupID)
	if err != nil {
		respond.Fail(w, apperr.Validation, "bad group_id")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create lecture")
	defer cancel()

	l, err := h.Coursework.CreateLecture(ctx, p, coursework.LectureInput{
		GroupID:     groupID,
		Title:       body.Title,
		Description: body.Description,
		Article:     body.Article,
		Resources:   body.Resources,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, l)
}

// ServeLecture handles GET /api/lectures/{id}. Members never see the
// attendance code.
func (h *Handler) ServeLecture(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get lecture")
	defer cancel()

	l, err := h.Coursework.GetLecture(ctx, p, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, l)
}

// HandleUpdate handles PATCH /api/lectures/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body updatePayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update lecture")
	defer cancel()

	l, err := h.Coursework.UpdateLecture(ctx, p, id, lecturestore.InfoUpdate{
		Title:       body.Title,
		Description: body.Description,
		Article:     body.Article,
		Resources:   body.Resources,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, l)
}

// HandleDelete handles DELETE /api/lectures/{id}. Every member ledger that
// references the lecture is stripped of it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "delete lecture")
	defer cancel()

	if err := h.Coursework.DeleteLecture(ctx, p, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "lecture deleted")
}

// HandleAttend handles POST /api/lectures/{id}/attend.
func (h *Handler) HandleAttend(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.CheckIns != nil && !h.CheckIns.Allow(p.ID.Hex()) {
		respond.TooManyRequests(w, "Too many check-in attempts. Please wait a minute.")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "check in")
	defer cancel()

	m, err := h.Coursework.CheckIn(ctx, p, id, body.Code)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, m)
}

// ServeAttendance handles GET /api/lectures/{id}/attendance.
func (h *Handler) ServeAttendance(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "lecture attendance")
	defer cancel()

	rep, err := h.Coursework.LectureAttendance(ctx, p, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, rep)
}
