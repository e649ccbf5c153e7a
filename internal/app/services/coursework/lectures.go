// internal/app/services/coursework/lectures.go
package coursework

import (
	"context"
	"errors"
	"time"

	lecturestore "github.com/dalemusser/classhub/internal/app/store/lectures"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// LectureInput holds the fields of a new lecture.
type LectureInput struct {
	GroupID     primitive.ObjectID
	Title       string
	Description string
	Article     string
	Resources   []string
}

// CreateLecture adds a lecture to a group and gives every approved member an
// absent attendance entry for it. Special members are scoped explicitly and
// are not touched.
func (s *Service) CreateLecture(ctx context.Context, p authz.Principal, in LectureInput) (*models.Lecture, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, apperr.Validationf("title is required")
	}

	var created *models.Lecture
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := s.groups.Exists(ctx, in.GroupID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("group not found")
		}
		created, err = s.lectures.Create(ctx, models.Lecture{
			GroupID:     in.GroupID,
			Title:       in.Title,
			Description: in.Description,
			Article:     in.Article,
			Resources:   in.Resources,
		})
		if err != nil {
			return err
		}
		members, err := s.users.ListByGroup(ctx, in.GroupID, models.StatusApproved)
		if err != nil {
			return err
		}
		n, err := s.mut.ApplyEach(ctx, members, in.GroupID, func(m *models.Membership, now time.Time) (bool, error) {
			return ledger.LectureAdded(m, created.ID, now), nil
		})
		if err != nil {
			return err
		}
		s.log.Info("lecture created",
			zap.String("lecture_id", created.ID.Hex()),
			zap.String("group_id", in.GroupID.Hex()),
			zap.Int("members_synced", n))
		return nil
	})
	if err != nil {
		return nil, s.translate("create_lecture", err)
	}
	return created, nil
}

// UpdateLecture changes a lecture's descriptive fields. Nil fields are kept.
func (s *Service) UpdateLecture(ctx context.Context, p authz.Principal, id primitive.ObjectID, u lecturestore.InfoUpdate) (*models.Lecture, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if u.Title != nil && *u.Title == "" {
		return nil, apperr.Validationf("title cannot be empty")
	}
	err := s.lectures.UpdateInfo(ctx, id, u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("lecture not found")
	}
	if err != nil {
		return nil, s.translate("update_lecture", err)
	}
	return s.loadLecture(ctx, id)
}

// GetLecture returns a lecture. Members get a view without the attendance
// code, attendees, or other members' submissions, and only for lectures they
// are eligible for.
func (s *Service) GetLecture(ctx context.Context, p authz.Principal, id primitive.ObjectID) (models.Lecture, error) {
	l, err := s.loadLecture(ctx, id)
	if err != nil {
		return models.Lecture{}, err
	}
	if err := s.canView(ctx, p, l); err != nil {
		return models.Lecture{}, err
	}
	if p.IsAdmin() {
		return *l, nil
	}
	return l.MemberView(), nil
}

// ListLectures returns the group's lectures visible to p.
func (s *Service) ListLectures(ctx context.Context, p authz.Principal, groupID primitive.ObjectID) ([]models.Lecture, error) {
	ok, err := s.groups.Exists(ctx, groupID)
	if err != nil {
		return nil, s.translate("list_lectures", err)
	}
	if !ok {
		return nil, apperr.NotFoundf("group not found")
	}
	all, err := s.lectures.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, s.translate("list_lectures", err)
	}
	if p.IsAdmin() {
		return all, nil
	}
	_, m, err := s.memberOf(ctx, p, groupID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.StatusPending {
		return nil, apperr.Forbiddenf("your request to join this group is still pending")
	}
	elig := ledger.EligibilityOf(m)
	out := make([]models.Lecture, 0, len(all))
	for _, l := range all {
		if elig.Covers(l.ID) {
			out = append(out, l.MemberView())
		}
	}
	return out, nil
}

// DeleteLecture removes a lecture and strips its attendance and task entries
// from every member that had them.
func (s *Service) DeleteLecture(ctx context.Context, p authz.Principal, id primitive.ObjectID) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		l, err := s.loadLecture(ctx, id)
		if err != nil {
			return err
		}
		tids := taskIDs(l)
		if _, err := s.lectures.Delete(ctx, id); err != nil {
			return err
		}
		affected, err := s.users.ListReferencingLecture(ctx, id, tids)
		if err != nil {
			return err
		}
		n, err := s.mut.ApplyEach(ctx, affected, l.GroupID, func(m *models.Membership, now time.Time) (bool, error) {
			return ledger.LectureRemoved(m, id, tids, now), nil
		})
		if err != nil {
			return err
		}
		s.log.Info("lecture deleted",
			zap.String("lecture_id", id.Hex()),
			zap.Int("members_synced", n))
		return nil
	})
	if err != nil {
		return s.translate("delete_lecture", err)
	}
	return nil
}
