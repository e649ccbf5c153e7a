// internal/app/features/groups/catalog.go
package groups

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/classhub/internal/app/services/catalog"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type groupPayload struct {
	Title           string                `json:"title"`
	CourseType      string                `json:"course_type"`
	Location        string                `json:"location"`
	StartDate       time.Time             `json:"start_date"`
	EndDate         time.Time             `json:"end_date"`
	Price           float64               `json:"price"`
	CourseDetails   []models.CourseDetail `json:"course_details"`
	AboutCourse     []string              `json:"about_course"`
	InstructorName  string                `json:"instructor_name"`
	ImageCourse     string                `json:"image_course"`
	ImageInstructor string                `json:"image_instructor"`
}

func (p groupPayload) input() catalog.GroupInput {
	return catalog.GroupInput{
		Title:           p.Title,
		CourseType:      p.CourseType,
		Location:        p.Location,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Price:           p.Price,
		CourseDetails:   p.CourseDetails,
		AboutCourse:     p.AboutCourse,
		InstructorName:  p.InstructorName,
		ImageCourse:     p.ImageCourse,
		ImageInstructor: p.ImageInstructor,
	}
}

type emailsPayload struct {
	Emails []string `json:"emails"`
}

// ServeList handles GET /api/groups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list groups")
	defer cancel()

	groups, err := h.Catalog.ListGroups(ctx, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, groups)
}

// ServeGroup handles GET /api/groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get group")
	defer cancel()

	g, err := h.Catalog.GetGroup(ctx, p, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, g)
}

// HandleCreate handles POST /api/groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	var body groupPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create group")
	defer cancel()

	g, err := h.Catalog.CreateGroup(ctx, p, body.input())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, g)
}

// HandleUpdate handles PUT /api/groups/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body groupPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update group")
	defer cancel()

	g, err := h.Catalog.UpdateGroup(ctx, p, id, body.input())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, g)
}

// HandleDelete handles DELETE /api/groups/{id}. Lectures go with the group
// and every user loses their membership in it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "delete group")
	defer cancel()

	if err := h.Catalog.DeleteGroup(ctx, p, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "group deleted")
}

// ServeAllowedEmails handles GET /api/groups/{id}/allowed-emails.
func (h *Handler) ServeAllowedEmails(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list allowed emails")
	defer cancel()

	list, err := h.Catalog.ListAllowedEmails(ctx, p, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, list)
}

// HandleAddAllowedEmails handles POST /api/groups/{id}/allowed-emails.
func (h *Handler) HandleAddAllowedEmails(w http.ResponseWriter, r *http.Request) {
	h.writeAllowedEmails(w, r, "add allowed emails", h.Catalog.AddAllowedEmails)
}

// HandleSetAllowedEmails handles PUT /api/groups/{id}/allowed-emails. An
// email listed here is removed from every other group's allow-list.
func (h *Handler) HandleSetAllowedEmails(w http.ResponseWriter, r *http.Request) {
	h.writeAllowedEmails(w, r, "set allowed emails", h.Catalog.SetAllowedEmails)
}

func (h *Handler) writeAllowedEmails(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context, authz.Principal, primitive.ObjectID, []string) ([]string, error)) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body emailsPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	emails, err := apply(ctx, p, id, body.Emails)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, emailsPayload{Emails: emails})
}

// HandleRemoveAllowedEmail handles DELETE /api/groups/{id}/allowed-emails/{email}.
func (h *Handler) HandleRemoveAllowedEmail(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove allowed email")
	defer cancel()

	if err := h.Catalog.RemoveAllowedEmail(ctx, p, id, chi.URLParam(r, "email")); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "email removed")
}
