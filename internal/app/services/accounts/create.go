// internal/app/services/accounts/create.go
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	userstore "github.com/dalemusser/classhub/internal/app/store/users"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NewAccount holds an account created by an admin. When GroupID is set the
// user is enrolled in that group straight away.
type NewAccount struct {
	Name     string `validate:"required,min=3,max=50" label:"Name"`
	Email    string `validate:"required,email,max=100" label:"Email"`
	Password string `validate:"required,min=10,max=72" label:"Password"`
	Phone    string `validate:"max=30" label:"Phone"`
	Role     string `validate:"omitempty,oneof=user admin" label:"Role"`
	GroupID  primitive.ObjectID
}

// CreateUser adds an account on someone's behalf. The email counts as
// verified. With a group, the user and their approved membership are
// created together.
func (s *Service) CreateUser(ctx context.Context, p authz.Principal, in NewAccount) (*models.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = inputval.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Role = strings.TrimSpace(in.Role)
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, apperr.Validationf("%s", res.All())
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflictf("an account with this email already exists")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.fault("create_user", err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.fault("create_user", err)
	}

	var (
		u     *models.User
		group *models.Group
	)
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if !in.GroupID.IsZero() {
			var err error
			group, err = s.groups.GetByID(ctx, in.GroupID)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.NotFoundf("group not found")
			}
			if err != nil {
				return err
			}
		}
		var err error
		u, err = s.users.Create(ctx, models.User{
			Name:          in.Name,
			Email:         in.Email,
			PasswordHash:  hash,
			Phone:         in.Phone,
			Role:          in.Role,
			EmailVerified: true,
		})
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return apperr.Conflictf("an account with this email already exists")
		}
		if err != nil || group == nil {
			return err
		}
		lectures, err := s.lectures.ListByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		m := ledger.NewApproved(group.ID, u.ID, models.RequestInvite, "", lectures, time.Now().UTC())
		if err := s.users.InsertMembership(ctx, u.ID, m); err != nil {
			return err
		}
		return s.groups.AddToRoster(ctx, group.ID, u.ID)
	})
	if err != nil {
		return nil, s.fault("create_user", err)
	}

	data := map[string]string{"user_name": u.Name, "user_email": u.Email}
	fields := []zap.Field{zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role), zap.String("by", p.ID.Hex())}
	if group != nil {
		data["group"] = group.Title
		fields = append(fields, zap.String("group_id", group.ID.Hex()))
	}
	s.log.Info("user created by admin", fields...)
	events.PublishAll(ctx, s.pub, s.log, events.New(events.AccountCreated, u.Email, data))
	return s.load(ctx, u.ID)
}
