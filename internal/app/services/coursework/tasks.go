// internal/app/services/coursework/tasks.go
package coursework

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateTask adds a task to a lecture and a blank ledger entry to every
// member eligible for the lecture. Eligible members are notified.
func (s *Service) CreateTask(ctx context.Context, p authz.Principal, lectureID primitive.ObjectID, description string, endDate time.Time) (models.Task, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return models.Task{}, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Task{}, apperr.Validationf("description is required")
	}
	if endDate.IsZero() {
		return models.Task{}, apperr.Validationf("end date is required")
	}

	var (
		lecture  *models.Lecture
		created  models.Task
		notified []models.User
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if lecture, err = s.loadLecture(ctx, lectureID); err != nil {
			return err
		}
		created, err = s.lectures.PushTask(ctx, lectureID, models.Task{
			Description: description,
			EndDate:     endDate.UTC(),
		})
		if err != nil {
			return err
		}
		members, err := s.users.ListByGroup(ctx, lecture.GroupID, models.StatusApproved, models.StatusSpecial)
		if err != nil {
			return err
		}
		notified = notified[:0]
		for _, u := range members {
			if m, ok := u.Membership(lecture.GroupID); ok && ledger.Eligible(m, lectureID) {
				notified = append(notified, u)
			}
		}
		_, err = s.mut.ApplyEach(ctx, members, lecture.GroupID, func(m *models.Membership, now time.Time) (bool, error) {
			return ledger.TaskAdded(m, lectureID, created, now), nil
		})
		return err
	})
	if err != nil {
		return models.Task{}, s.translate("create_task", err)
	}

	evs := make([]events.Event, 0, len(notified))
	for _, u := range notified {
		evs = append(evs, events.New(events.TaskCreated, u.Email, map[string]string{
			"user_name": u.Name,
			"lecture":   lecture.Title,
			"task":      created.Description,
			"due":       created.EndDate.Format(time.RFC1123),
		}))
	}
	events.PublishAll(ctx, s.pub, s.log, evs...)
	created.Submissions = nil
	return created, nil
}

// TaskUpdate holds the changeable fields of a task. Nil fields are kept.
type TaskUpdate struct {
	Description *string
	EndDate     *time.Time
}

// UpdateTask changes a task's description or deadline. A new description is
// mirrored onto every member's ledger entry name.
func (s *Service) UpdateTask(ctx context.Context, p authz.Principal, lectureID, taskID primitive.ObjectID, u TaskUpdate) (models.Task, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return models.Task{}, err
	}
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		if d == "" {
			return models.Task{}, apperr.Validationf("description cannot be empty")
		}
		u.Description = &d
	}
	if u.EndDate != nil {
		if u.EndDate.IsZero() {
			return models.Task{}, apperr.Validationf("end date cannot be empty")
		}
		end := u.EndDate.UTC()
		u.EndDate = &end
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		found, err := s.lectures.UpdateTask(ctx, lectureID, taskID, u.Description, u.EndDate)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFoundf("task not found")
		}
		if u.Description == nil {
			return nil
		}
		_, err = s.users.RenameTaskEntries(ctx, taskID, *u.Description)
		return err
	})
	if err != nil {
		return models.Task{}, s.translate("update_task", err)
	}
	_, t, err := s.loadTask(ctx, lectureID, taskID)
	return t, err
}

// DeleteTask removes a task and its ledger entry from every member.
func (s *Service) DeleteTask(ctx context.Context, p authz.Principal, lectureID, taskID primitive.ObjectID) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		lecture, err := s.loadLecture(ctx, lectureID)
		if err != nil {
			return err
		}
		removed, err := s.lectures.PullTask(ctx, lectureID, taskID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.NotFoundf("task not found")
		}
		members, err := s.users.ListByGroup(ctx, lecture.GroupID)
		if err != nil {
			return err
		}
		n, err := s.mut.ApplyEach(ctx, members, lecture.GroupID, func(m *models.Membership, now time.Time) (bool, error) {
			return ledger.TaskRemoved(m, taskID, now), nil
		})
		if err != nil {
			return err
		}
		s.log.Info("task deleted",
			zap.String("lecture_id", lectureID.Hex()),
			zap.String("task_id", taskID.Hex()),
			zap.Int("members_synced", n))
		return nil
	})
	if err != nil {
		return s.translate("delete_task", err)
	}
	return nil
}

// TaskView is a task as a caller sees it. Members see only their own
// submission; admins see all of them on Task.
type TaskView struct {
	models.Task
	Mine *models.Submission `json:"my_submission,omitempty"`
}

// ListTasks returns the tasks of a lecture visible to p.
func (s *Service) ListTasks(ctx context.Context, p authz.Principal, lectureID primitive.ObjectID) ([]TaskView, error) {
	l, err := s.loadLecture(ctx, lectureID)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, p, l); err != nil {
		return nil, err
	}
	out := make([]TaskView, 0, len(l.Tasks))
	for _, t := range l.Tasks {
		out = append(out, viewTask(p, t))
	}
	return out, nil
}

// GetTask returns one task visible to p.
func (s *Service) GetTask(ctx context.Context, p authz.Principal, lectureID, taskID primitive.ObjectID) (TaskView, error) {
	l, t, err := s.loadTask(ctx, lectureID, taskID)
	if err != nil {
		return TaskView{}, err
	}
	if err := s.canView(ctx, p, l); err != nil {
		return TaskView{}, err
	}
	return viewTask(p, t), nil
}

func viewTask(p authz.Principal, t models.Task) TaskView {
	if p.IsAdmin() {
		return TaskView{Task: t}
	}
	v := TaskView{Task: t}
	v.Submissions = nil
	if sub, ok := t.SubmissionBy(p.ID); ok {
		v.Mine = &sub
	}
	return v
}
