// internal/app/services/coursework/coursework.go

// Package coursework manages lectures, tasks, attendance, and submissions,
// keeping every member's ledgers in step with each structural change.
package coursework

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/classhub/internal/app/services/membership"
	groupstore "github.com/dalemusser/classhub/internal/app/store/groups"
	lecturestore "github.com/dalemusser/classhub/internal/app/store/lectures"
	userstore "github.com/dalemusser/classhub/internal/app/store/users"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service runs coursework operations.
type Service struct {
	db       *mongo.Database
	users    *userstore.Store
	groups   *groupstore.Store
	lectures *lecturestore.Store
	mut      *membership.Mutator
	pub      events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

// New builds the service. pub may be nil.
func New(db *mongo.Database, pub events.Publisher, log *zap.Logger) *Service {
	return newWithClock(db, pub, log, func() time.Time { return time.Now().UTC() })
}

func newWithClock(db *mongo.Database, pub events.Publisher, log *zap.Logger, now func() time.Time) *Service {
	users := userstore.New(db)
	return &Service{
		db:       db,
		users:    users,
		groups:   groupstore.New(db),
		lectures: lecturestore.New(db),
		mut:      membership.NewMutator(users, now),
		pub:      pub,
		log:      log,
		now:      now,
	}
}

func (s *Service) loadLecture(ctx context.Context, id primitive.ObjectID) (*models.Lecture, error) {
	l, err := s.lectures.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("lecture not found")
	}
	if err != nil {
		return nil, apperr.Fault(err)
	}
	return l, nil
}

func (s *Service) loadTask(ctx context.Context, lectureID, taskID primitive.ObjectID) (*models.Lecture, models.Task, error) {
	l, err := s.loadLecture(ctx, lectureID)
	if err != nil {
		return nil, models.Task{}, err
	}
	t, ok := l.Task(taskID)
	if !ok {
		return nil, models.Task{}, apperr.NotFoundf("task not found")
	}
	return l, t, nil
}

// memberOf returns p's membership for groupID. Principals without one get a
// Forbidden failure.
func (s *Service) memberOf(ctx context.Context, p authz.Principal, groupID primitive.ObjectID) (*models.User, models.Membership, error) {
	u, err := s.users.GetByID(ctx, p.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.Membership{}, apperr.Forbiddenf("you are not enrolled in this group")
	}
	if err != nil {
		return nil, models.Membership{}, apperr.Fault(err)
	}
	m, ok := u.Membership(groupID)
	if !ok {
		return nil, models.Membership{}, apperr.Forbiddenf("you are not enrolled in this group")
	}
	return u, m, nil
}

// canView reports an error unless p may see lecture l.
func (s *Service) canView(ctx context.Context, p authz.Principal, l *models.Lecture) error {
	if p.IsAdmin() {
		return nil
	}
	_, m, err := s.memberOf(ctx, p, l.GroupID)
	if err != nil {
		return err
	}
	if !ledger.Eligible(m, l.ID) {
		return apperr.Forbiddenf("you are not enrolled for this lecture")
	}
	return nil
}

func (s *Service) translate(op string, err error) error {
	err = membership.Translate(err)
	if apperr.Is(err, apperr.ServerFault) {
		s.log.Error("coursework operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func taskIDs(l *models.Lecture) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(l.Tasks))
	for _, t := range l.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
