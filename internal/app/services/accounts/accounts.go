// internal/app/services/accounts/accounts.go

// Package accounts registers users, signs them in, and manages profiles,
// roles, feedback, email verification, password resets, and account
// deletion.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/classhub/internal/app/store/emailverify"
	groupstore "github.com/dalemusser/classhub/internal/app/store/groups"
	lecturestore "github.com/dalemusser/classhub/internal/app/store/lectures"
	userstore "github.com/dalemusser/classhub/internal/app/store/users"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"github.com/dalemusser/classhub/internal/app/system/paging"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(userID primitive.ObjectID, role string) (string, time.Time, error)
}

// Config holds account policy.
type Config struct {
	// AdminEmail is granted the admin role when it registers.
	AdminEmail string
	// CodeTTL is how long emailed codes stay valid. Zero uses
	// emailverify.DefaultExpiry.
	CodeTTL time.Duration
	// RequireVerifiedEmail refuses sign-in until the email is verified.
	RequireVerifiedEmail bool
}

// Service manages accounts.
type Service struct {
	db              *mongo.Database
	users           *userstore.Store
	groups          *groupstore.Store
	lectures        *lecturestore.Store
	codes           *emailverify.Store
	tokens          TokenIssuer
	pub             events.Publisher
	adminEmail      string
	requireVerified bool
	log             *zap.Logger
}

// New builds the service. Account emails are published to pub.
func New(db *mongo.Database, tokens TokenIssuer, pub events.Publisher, cfg Config, log *zap.Logger) *Service {
	return &Service{
		db:              db,
		users:           userstore.New(db),
		groups:          groupstore.New(db),
		lectures:        lecturestore.New(db),
		codes:           emailverify.New(db, cfg.CodeTTL),
		tokens:          tokens,
		pub:             pub,
		adminEmail:      inputval.NormalizeEmail(cfg.AdminEmail),
		requireVerified: cfg.RequireVerifiedEmail,
		log:             log,
	}
}

// Registration holds a new account's details.
type Registration struct {
	Name     string `validate:"required,min=3,max=50" label:"Name"`
	Email    string `validate:"required,email,max=100" label:"Email"`
	Password string `validate:"required,min=10,max=72" label:"Password"`
	Phone    string `validate:"max=30" label:"Phone"`
}

// Register creates an unverified account and emails a verification code.
func (s *Service) Register(ctx context.Context, in Registration) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = inputval.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, apperr.Validationf("%s", res.All())
	}
	// concurrent registrations are caught by the unique email index below
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflictf("an account with this email already exists")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.fault("register", err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.fault("register", err)
	}
	role := models.RoleUser
	if s.adminEmail != "" && in.Email == s.adminEmail {
		role = models.RoleAdmin
	}
	u, err := s.users.Create(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		Role:         role,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return nil, apperr.Conflictf("an account with this email already exists")
	}
	if err != nil {
		return nil, s.fault("register", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", role))
	// the account exists either way; the user can ask for a new code
	if err := s.sendVerification(ctx, u, false); err != nil {
		s.log.Warn("verification code not sent", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	return u, nil
}

// Session is a signed-in user's token.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, inputval.NormalizeEmail(email))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, apperr.New(apperr.Unauthorized, "invalid email or password")
	}
	if err != nil {
		return Session{}, s.fault("login", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, apperr.New(apperr.Unauthorized, "invalid email or password")
	}
	if s.requireVerified && !u.EmailVerified {
		return Session{}, apperr.Forbiddenf("verify your email before signing in")
	}
	tok, exp, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, s.fault("login", err)
	}
	return Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

// GetSelf returns p's account.
func (s *Service) GetSelf(ctx context.Context, p authz.Principal) (*models.User, error) {
	return s.GetUser(ctx, p, p.ID)
}

// GetUser returns an account. Users may read their own; admins any.
func (s *Service) GetUser(ctx context.Context, p authz.Principal, id primitive.ObjectID) (*models.User, error) {
	if err := authz.RequireSelfOrAdmin(p, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ListUsers returns one page of accounts ordered by name, optionally
// narrowed to names or emails starting with search.
func (s *Service) ListUsers(ctx context.Context, p authz.Principal, search string, req paging.Request) (paging.Page[models.User], error) {
	if err := authz.RequireAdmin(p); err != nil {
		return paging.Page[models.User]{}, err
	}
	cfg := paging.ConfigureKeyset(req)
	rows, err := s.users.ListPage(ctx, search, cfg)
	if err != nil {
		return paging.Page[models.User]{}, s.fault("list_users", err)
	}
	return paging.Build(cfg, rows,
		func(u models.User) string { return u.NameCI },
		func(u models.User) primitive.ObjectID { return u.ID },
	), nil
}

// Profile holds the self-editable account fields.
type Profile struct {
	Name  string `validate:"required,min=3,max=50" label:"Name"`
	Phone string `validate:"max=30" label:"Phone"`
}

// UpdateProfile changes p's name and phone.
func (s *Service) UpdateProfile(ctx context.Context, p authz.Principal, in Profile) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, apperr.Validationf("%s", res.All())
	}
	err := s.users.UpdateProfile(ctx, p.ID, in.Name, in.Phone)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("user not found")
	}
	if err != nil {
		return nil, s.fault("update_profile", err)
	}
	return s.load(ctx, p.ID)
}

// UpdateRole sets a user's role. Admins cannot demote themselves.
func (s *Service) UpdateRole(ctx context.Context, p authz.Principal, id primitive.ObjectID, role string) (*models.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperr.Validationf("role must be user or admin")
	}
	if id == p.ID && role != models.RoleAdmin {
		return nil, apperr.Conflictf("you cannot remove your own admin role")
	}
	err := s.users.UpdateRole(ctx, id, role)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("user not found")
	}
	if err != nil {
		return nil, s.fault("update_role", err)
	}
	s.log.Info("user role changed",
		zap.String("user_id", id.Hex()),
		zap.String("role", role),
		zap.String("by", p.ID.Hex()))
	return s.load(ctx, id)
}

// DeleteUser removes an account: it leaves every roster, its submissions and
// check-ins are pulled from every lecture, its emailed codes are dropped,
// and the user is deleted, as one unit. Users may delete themselves; admins anyone.
func (s *Service) DeleteUser(ctx context.Context, p authz.Principal, id primitive.ObjectID) error {
	if err := authz.RequireSelfOrAdmin(p, id); err != nil {
		return err
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, id); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.NotFoundf("user not found")
			}
			return err
		}
		if _, err := s.groups.PullUserFromAllRosters(ctx, id); err != nil {
			return err
		}
		if err := s.lectures.PullUserEverywhere(ctx, id); err != nil {
			return err
		}
		if err := s.codes.DeleteByUser(ctx, id); err != nil {
			return err
		}
		_, err := s.users.Delete(ctx, id)
		return err
	})
	if err != nil {
		return s.fault("delete_user", err)
	}
	s.log.Info("user deleted", zap.String("user_id", id.Hex()), zap.String("by", p.ID.Hex()))
	return nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("user not found")
	}
	if err != nil {
		return nil, s.fault("load_user", err)
	}
	return u, nil
}

func (s *Service) fault(op string, err error) error {
	err = apperr.Wrap(err)
	if apperr.Is(err, apperr.ServerFault) {
		s.log.Error("accounts operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}
