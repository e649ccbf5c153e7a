// internal/app/services/catalog/catalog.go

// Package catalog manages groups (courses) and their allow-lists.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	groupstore "github.com/dalemusser/classhub/internal/app/store/groups"
	lecturestore "github.com/dalemusser/classhub/internal/app/store/lectures"
	userstore "github.com/dalemusser/classhub/internal/app/store/users"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service manages the course catalog.
type Service struct {
	db       *mongo.Database
	users    *userstore.Store
	groups   *groupstore.Store
	lectures *lecturestore.Store
	log      *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		users:    userstore.New(db),
		groups:   groupstore.New(db),
		lectures: lecturestore.New(db),
		log:      log,
	}
}

// GroupInput holds the editable fields of a group.
type GroupInput struct {
	Title           string `validate:"required,max=200" label:"Title"`
	CourseType      string `validate:"required,coursetype" label:"Course type"`
	Location        string `validate:"required_if=CourseType offline,max=200" label:"Location"`
	StartDate       time.Time
	EndDate         time.Time
	Price           float64 `validate:"gte=0" label:"Price"`
	CourseDetails   []models.CourseDetail
	AboutCourse     []string
	InstructorName  string `validate:"max=100" label:"Instructor name"`
	ImageCourse     string `validate:"omitempty,httpurl" label:"Course image"`
	ImageInstructor string `validate:"omitempty,httpurl" label:"Instructor image"`
}

func (in *GroupInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.InstructorName = strings.TrimSpace(in.InstructorName)
	if res := inputval.Validate(in); res.HasErrors() {
		return apperr.Validationf("%s", res.All())
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return apperr.Validationf("Start date and end date are required.")
	}
	if in.EndDate.Before(in.StartDate) {
		return apperr.Validationf("End date must not be before start date.")
	}
	return nil
}

func (in GroupInput) group() models.Group {
	loc := in.Location
	if in.CourseType == models.CourseOnline {
		loc = ""
	}
	return models.Group{
		Title:           in.Title,
		CourseType:      in.CourseType,
		Location:        loc,
		StartDate:       in.StartDate.UTC(),
		EndDate:         in.EndDate.UTC(),
		Price:           in.Price,
		CourseDetails:   in.CourseDetails,
		AboutCourse:     in.AboutCourse,
		InstructorName:  in.InstructorName,
		ImageCourse:     in.ImageCourse,
		ImageInstructor: in.ImageInstructor,
	}
}

// CreateGroup adds a group to the catalog.
func (s *Service) CreateGroup(ctx context.Context, p authz.Principal, in GroupInput) (*models.Group, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	g, err := s.groups.Create(ctx, in.group())
	if err != nil {
		return nil, s.fault("create_group", err)
	}
	s.log.Info("group created", zap.String("group_id", g.ID.Hex()), zap.String("title", g.Title))
	return g, nil
}

// UpdateGroup replaces a group's course fields. Roster and allow-list are
// kept.
func (s *Service) UpdateGroup(ctx context.Context, p authz.Principal, id primitive.ObjectID, in GroupInput) (*models.Group, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	g := in.group()
	g.ID = id
	err := s.groups.Update(ctx, g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return nil, s.fault("update_group", err)
	}
	return s.load(ctx, id)
}

// GetGroup returns a group. Only admins see the roster and allow-list.
func (s *Service) GetGroup(ctx context.Context, p authz.Principal, id primitive.ObjectID) (models.Group, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return models.Group{}, err
	}
	return view(p, *g), nil
}

// ListGroups returns the catalog.
func (s *Service) ListGroups(ctx context.Context, p authz.Principal) ([]models.Group, error) {
	all, err := s.groups.List(ctx)
	if err != nil {
		return nil, s.fault("list_groups", err)
	}
	out := make([]models.Group, 0, len(all))
	for _, g := range all {
		out = append(out, view(p, g))
	}
	return out, nil
}

func view(p authz.Principal, g models.Group) models.Group {
	if p.IsAdmin() {
		return g
	}
	g.Members = nil
	g.AllowedEmails = nil
	return g
}

// DeleteGroup removes a group, its lectures, and every membership that
// references it, as one unit.
func (s *Service) DeleteGroup(ctx context.Context, p authz.Principal, id primitive.ObjectID) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := s.groups.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("group not found")
		}
		lectures, err := s.lectures.DeleteByGroup(ctx, id)
		if err != nil {
			return err
		}
		members, err := s.users.PullGroupFromAll(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.groups.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info("group deleted",
			zap.String("group_id", id.Hex()),
			zap.Int64("lectures_deleted", lectures),
			zap.Int64("memberships_removed", members))
		return nil
	})
	if err != nil {
		return s.fault("delete_group", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("group not found")
	}
	if err != nil {
		return nil, s.fault("load_group", err)
	}
	return g, nil
}

// fault wraps err unless it is already a service failure, logging faults.
func (s *Service) fault(op string, err error) error {
	err = apperr.Wrap(err)
	if apperr.Is(err, apperr.ServerFault) {
		s.log.Error("catalog operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}
