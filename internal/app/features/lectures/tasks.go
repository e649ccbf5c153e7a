// internal/app/features/lectures/tasks.go
package lectures

import (
	"net/http"
	"time"

	"github.com/dalemusser/classhub/internal/app/services/coursework"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type taskPayload struct {
	Description string    `json:"description"`
	EndDate     time.Time `json:"end_date"`
}

type taskUpdatePayload struct {
	Description *string    `json:"description"`
	EndDate     *time.Time `json:"end_date"`
}

type gradePayload struct {
	Score    *float64 `json:"score"`
	Feedback *string  `json:"feedback"`
}

// ServeTasks handles GET /api/lectures/{id}/tasks.
func (h *Handler) ServeTasks(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list tasks")
	defer cancel()

	tasks, err := h.Coursework.ListTasks(ctx, p, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, tasks)
}

// ServeTask handles GET /api/lectures/{id}/tasks/{taskID}.
func (h *Handler) ServeTask(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	lectureID, taskID, err := taskPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get task")
	defer cancel()

	t, err := h.Coursework.GetTask(ctx, p, lectureID, taskID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, t)
}

// HandleCreateTask handles POST /api/lectures/{id}/tasks. Eligible members
// get a ledger entry and a notification.
func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body taskPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create task")
	defer cancel()

	t, err := h.Coursework.CreateTask(ctx, p, id, body.Description, body.EndDate)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, t)
}

// HandleUpdateTask handles PATCH /api/lectures/{id}/tasks/{taskID}.
func (h *Handler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	lectureID, taskID, err := taskPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body taskUpdatePayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update task")
	defer cancel()

	t, err := h.Coursework.UpdateTask(ctx, p, lectureID, taskID, coursework.TaskUpdate{
		Description: body.Description,
		EndDate:     body.EndDate,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, t)
}

// HandleDeleteTask handles DELETE /api/lectures/{id}/tasks/{taskID}.
func (h *Handler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	lectureID, taskID, err := taskPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete task")
	defer cancel()

	if err := h.Coursework.DeleteTask(ctx, p, lectureID, taskID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "task deleted")
}

// HandleSubmit handles POST /api/lectures/{id}/tasks/{taskID}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	lectureID, taskID, err := taskPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body struct {
		Link string `json:"link"`
	}
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit task")
	defer cancel()

	entry, err := h.Coursework.SubmitTask(ctx, p, lectureID, taskID, body.Link)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, entry)
}

// ServeSubmissions handles GET /api/lectures/{id}/tasks/{taskID}/submissions.
func (h *Handler) ServeSubmissions(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	lectureID, taskID, err := taskPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "task submissions")
	defer cancel()

	rep, err := h.Coursework.TaskSubmissions(ctx, p, lectureID, taskID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, rep)
}

// HandleGrade handles POST /api/lectures/{id}/tasks/{taskID}/submissions/{userID}/grade.
func (h *Handler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	lectureID, taskID, err := taskPath(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	userID, err := respond.PathID(r, "userID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body gradePayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if body.Score == nil {
		respond.Fail(w, apperr.Validation, "score is required")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "grade submission")
	defer cancel()

	sub, err := h.Coursework.Grade(ctx, p, lectureID, taskID, userID, *body.Score, body.Feedback)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, sub)
}

func taskPath(r *http.Request) (lectureID, taskID primitive.ObjectID, err error) {
	if lectureID, err = respond.PathID(r, "id"); err != nil {
		return
	}
	taskID, err = respond.PathID(r, "taskID")
	return
}
