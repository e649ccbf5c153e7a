// internal/app/services/coursework/submissions.go
package coursework

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dalemusser/classhub/internal/app/services/membership"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SubmitTask records p's link for a task, overwriting an earlier submission
// and keeping its grade. The link must be an https URL on an allowed host
// and the deadline must not have passed.
func (s *Service) SubmitTask(ctx context.Context, p authz.Principal, lectureID, taskID primitive.ObjectID, link string) (models.TaskEntry, error) {
	if p.IsZero() {
		return models.TaskEntry{}, apperr.New(apperr.Unauthorized, "sign in required")
	}
	l, t, err := s.loadTask(ctx, lectureID, taskID)
	if err != nil {
		return models.TaskEntry{}, err
	}
	now := s.now()
	if !ledger.OnTime(now, t.EndDate) {
		return models.TaskEntry{}, apperr.Validationf("the deadline for this task has passed")
	}
	clean, err := inputval.SubmissionLink(link)
	if err != nil {
		return models.TaskEntry{}, apperr.Validationf("%s", err.Error())
	}

	var entry models.TaskEntry
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		_, mem, err := s.mut.Apply(ctx, p.ID, l.GroupID, func(m *models.Membership, now time.Time) (bool, error) {
			if !ledger.Eligible(*m, lectureID) {
				return false, ledger.ErrNotEligible
			}
			ledger.Submit(m, lectureID, t, clean, now)
			return true, nil
		})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFoundf("user not found")
		}
		if err != nil {
			return err
		}
		entry, _ = mem.TaskFor(taskID)
		err = s.lectures.UpsertSubmission(ctx, lectureID, taskID, models.Submission{
			UserID:          p.ID,
			Link:            clean,
			SubmittedAt:     *entry.SubmittedAt,
			SubmittedOnTime: *entry.SubmittedOnTime,
		})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFoundf("task not found")
		}
		return err
	})
	if err != nil {
		return models.TaskEntry{}, s.translate("submit_task", err)
	}
	return entry, nil
}

// Grade scores a member's submission on the task and its ledger mirror.
func (s *Service) Grade(ctx context.Context, p authz.Principal, lectureID, taskID, userID primitive.ObjectID, score float64, feedback *string) (models.Submission, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return models.Submission{}, err
	}
	if score < 0 {
		return models.Submission{}, apperr.Validationf("score cannot be negative")
	}
	l, t, err := s.loadTask(ctx, lectureID, taskID)
	if err != nil {
		return models.Submission{}, err
	}

	var user *models.User
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		found, err := s.lectures.GradeSubmission(ctx, lectureID, taskID, userID, score, feedback)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFoundf("submission not found")
		}
		user, _, err = s.mut.Apply(ctx, userID, l.GroupID, func(m *models.Membership, now time.Time) (bool, error) {
			err := ledger.Grade(m, taskID, score, feedback, now)
			if errors.Is(err, ledger.ErrNoTaskEntry) {
				// no longer eligible; only the canonical submission is graded
				return false, nil
			}
			return err == nil, err
		})
		switch {
		case errors.Is(err, membership.ErrNoMembership):
			return nil
		case errors.Is(err, mongo.ErrNoDocuments):
			return apperr.NotFoundf("user not found")
		}
		return err
	})
	if err != nil {
		return models.Submission{}, s.translate("grade", err)
	}

	sub, _ := t.SubmissionBy(userID)
	sc := score
	sub.Score = &sc
	sub.Feedback = feedback

	if user != nil {
		fb := ""
		if feedback != nil {
			fb = *feedback
		}
		events.PublishAll(ctx, s.pub, s.log, events.New(events.TaskGraded, user.Email, map[string]string{
			"user_name": user.Name,
			"task":      t.Description,
			"lecture":   l.Title,
			"score":     strconv.FormatFloat(score, 'f', -1, 64),
			"feedback":  fb,
		}))
	}
	return sub, nil
}
