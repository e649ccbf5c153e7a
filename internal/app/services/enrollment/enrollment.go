// internal/app/services/enrollment/enrollment.go

// Package enrollment runs the membership state machine: join requests, admin
// review, special access, and leaving a group.
package enrollment

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
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service runs enrollment transitions.
type Service struct {
	db         *mongo.Database
	users      *userstore.Store
	groups     *groupstore.Store
	lectures   *lecturestore.Store
	mut        *membership.Mutator
	pub        events.Publisher
	log        *zap.Logger
	adminEmail string
	now        func() time.Time
}

// New builds the service. pub may be nil, in which case no notifications are
// published. adminEmail receives join request notices.
func New(db *mongo.Database, pub events.Publisher, adminEmail string, log *zap.Logger) *Service {
	now := func() time.Time { return time.Now().UTC() }
	users := userstore.New(db)
	return &Service{
		db:         db,
		users:      users,
		groups:     groupstore.New(db),
		lectures:   lecturestore.New(db),
		mut:        membership.NewMutator(users, now),
		pub:        pub,
		log:        log,
		adminEmail: adminEmail,
		now:        now,
	}
}

// JoinRequest is a member's request to join a group.
type JoinRequest struct {
	GroupID     primitive.ObjectID
	RequestType models.RequestType
	Note        string
}

// RequestJoin creates p's membership for the group. An allow-listed email
// is approved immediately and its allow-list entry is consumed; otherwise the
// membership waits for review.
func (s *Service) RequestJoin(ctx context.Context, p authz.Principal, req JoinRequest) (models.Membership, error) {
	if p.IsZero() {
		return models.Membership{}, apperr.New(apperr.Unauthorized, "sign in required")
	}
	if req.RequestType == "" {
		req.RequestType = models.RequestJoin
	}
	if !req.RequestType.Valid() {
		return models.Membership{}, apperr.Validationf("request type must be join or invite")
	}

	var (
		user    *models.User
		group   *models.Group
		created models.Membership
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, p.ID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFoundf("user not found")
		}
		if err != nil {
			return err
		}
		group, err = s.groups.GetByID(ctx, req.GroupID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFoundf("group not found")
		}
		if err != nil {
			return err
		}
		if _, exists := user.Membership(group.ID); exists {
			return apperr.Conflictf("a request for this group already exists")
		}

		now := s.now()
		consumed, err := s.groups.ConsumeAllowedEmail(ctx, group.ID, user.Email)
		if err != nil {
			return err
		}
		if !consumed {
			created = ledger.NewPending(group.ID, req.RequestType, req.Note, now)
			return s.users.InsertMembership(ctx, user.ID, created)
		}

		lectures, err := s.lectures.ListByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		created = ledger.NewApproved(group.ID, user.ID, req.RequestType, req.Note, lectures, now)
		if err := s.users.InsertMembership(ctx, user.ID, created); err != nil {
			return err
		}
		return s.groups.AddToRoster(ctx, group.ID, user.ID)
	})
	if err != nil {
		return models.Membership{}, membership.Translate(err)
	}

	if created.Status == models.StatusApproved {
		s.log.Info("join approved from allow-list",
			zap.String("user_id", user.ID.Hex()), zap.String("group_id", group.ID.Hex()))
		events.PublishAll(ctx, s.pub, s.log, events.New(events.JoinApproved, user.Email, map[string]string{
			"user_name": user.Name,
			"group":     group.Title,
		}))
	} else {
		events.PublishAll(ctx, s.pub, s.log, events.New(events.JoinRequested, s.adminEmail, map[string]string{
			"user_name":  user.Name,
			"user_email": user.Email,
			"group":      group.Title,
			"note":       req.Note,
		}))
	}
	return created, nil
}

// Approve moves a pending membership to approved and fills its ledgers from
// the group's lectures.
func (s *Service) Approve(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID) (models.Membership, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return models.Membership{}, err
	}
	var (
		user  *models.User
		group *models.Group
		mem   models.Membership
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if group, err = s.loadGroup(ctx, groupID); err != nil {
			return err
		}
		lectures, err := s.lectures.ListByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		user, mem, err = s.mut.Apply(ctx, userID, groupID, membership.Transition(func(m *models.Membership, now time.Time) error {
			return ledger.Approve(m, userID, lectures, now)
		}))
		if err != nil {
			return err
		}
		return s.groups.AddToRoster(ctx, groupID, userID)
	})
	if err != nil {
		return models.Membership{}, s.translate(err)
	}

	events.PublishAll(ctx, s.pub, s.log, events.New(events.JoinApproved, user.Email, map[string]string{
		"user_name": user.Name,
		"group":     group.Title,
	}))
	return mem, nil
}

// Reject deletes a pending membership and drops the user from the roster.
func (s *Service) Reject(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	var (
		user  *models.User
		group *models.Group
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if group, err = s.loadGroup(ctx, groupID); err != nil {
			return err
		}
		if user, err = s.users.GetByID(ctx, userID); err != nil {
			return err
		}
		mem, ok := user.Membership(groupID)
		if !ok {
			return membership.ErrNoMembership
		}
		if err := ledger.CanReject(mem); err != nil {
			return err
		}
		if err := s.users.RemoveMembershipAt(ctx, userID, groupID, mem.Revision); err != nil {
			return err
		}
		_, err = s.groups.RemoveFromRoster(ctx, groupID, userID)
		return err
	})
	if err != nil {
		return s.translate(err)
	}

	events.PublishAll(ctx, s.pub, s.log, events.New(events.JoinRejected, user.Email, map[string]string{
		"user_name": user.Name,
		"group":     group.Title,
	}))
	return nil
}

// GrantSpecial moves a pending membership to special access over exactly
// lectureIDs, which must all belong to the group.
func (s *Service) GrantSpecial(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID, lectureIDs []primitive.ObjectID) (models.Membership, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return models.Membership{}, err
	}
	ids := ledger.MergeSpecial(nil, lectureIDs, nil)
	if len(ids) == 0 {
		return models.Membership{}, apperr.Validationf("at least one lecture is required")
	}

	var (
		user  *models.User
		group *models.Group
		mem   models.Membership
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if group, err = s.loadGroup(ctx, groupID); err != nil {
			return err
		}
		lectures, err := s.lectures.ListByIDs(ctx, groupID, ids)
		if err != nil {
			return err
		}
		if len(lectures) != len(ids) {
			return apperr.NotFoundf("one or more lectures do not belong to this group")
		}
		lectures = ordered(lectures, ids)
		user, mem, err = s.mut.Apply(ctx, userID, groupID, membership.Transition(func(m *models.Membership, now time.Time) error {
			return ledger.GrantSpecial(m, userID, lectures, now)
		}))
		if err != nil {
			return err
		}
		return s.groups.AddToRoster(ctx, groupID, userID)
	})
	if err != nil {
		return models.Membership{}, s.translate(err)
	}

	events.PublishAll(ctx, s.pub, s.log, events.New(events.JoinApproved, user.Email, map[string]string{
		"user_name": user.Name,
		"group":     group.Title,
	}))
	return mem, nil
}

// UpdateSpecial adds and removes lectures from a special membership's scope.
// Added lectures must belong to the group. Removal wins when a lecture is in
// both lists.
func (s *Service) UpdateSpecial(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID, add, remove []primitive.ObjectID) (models.Membership, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return models.Membership{}, err
	}
	if len(add) == 0 && len(remove) == 0 {
		return models.Membership{}, apperr.Validationf("nothing to add or remove")
	}

	var mem models.Membership
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.loadGroup(ctx, groupID); err != nil {
			return err
		}
		all, err := s.lectures.ListByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		byID := make(map[primitive.ObjectID]models.Lecture, len(all))
		for _, l := range all {
			byID[l.ID] = l
		}
		for _, id := range add {
			if _, ok := byID[id]; !ok {
				return apperr.NotFoundf("one or more lectures do not belong to this group")
			}
		}

		_, mem, err = s.mut.Apply(ctx, userID, groupID, membership.Transition(func(m *models.Membership, now time.Time) error {
			var current []primitive.ObjectID
			if m.Special != nil {
				current = m.Special.Lectures
			}
			var scoped []models.Lecture
			for _, id := range ledger.MergeSpecial(current, add, remove) {
				// lectures deleted since the grant drop out of scope
				if l, ok := byID[id]; ok {
					scoped = append(scoped, l)
				}
			}
			return ledger.UpdateSpecial(m, userID, scoped, now)
		}))
		return err
	})
	if err != nil {
		return models.Membership{}, s.translate(err)
	}
	return mem, nil
}

// ResetToPending sends a reviewed membership back to pending. Ledgers are kept.
func (s *Service) ResetToPending(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID) (models.Membership, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return models.Membership{}, err
	}
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return models.Membership{}, s.translate(err)
	}
	_, mem, err := s.mut.Apply(ctx, userID, groupID, membership.Transition(ledger.ResetToPending))
	if err != nil {
		return models.Membership{}, s.translate(err)
	}
	return mem, nil
}

// Leave removes p's membership and roster entry for the group.
func (s *Service) Leave(ctx context.Context, p authz.Principal, groupID primitive.ObjectID) error {
	if p.IsZero() {
		return apperr.New(apperr.Unauthorized, "sign in required")
	}
	var (
		user  *models.User
		group *models.Group
	)
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if group, err = s.loadGroup(ctx, groupID); err != nil {
			return err
		}
		if user, err = s.users.GetByID(ctx, p.ID); err != nil {
			return err
		}
		removed, err := s.users.RemoveMembership(ctx, p.ID, groupID)
		if err != nil {
			return err
		}
		unrostered, err := s.groups.RemoveFromRoster(ctx, groupID, p.ID)
		if err != nil {
			return err
		}
		if !removed && !unrostered {
			return apperr.NotFoundf("you are not a member of this group")
		}
		return nil
	})
	if err != nil {
		return s.translate(err)
	}

	events.PublishAll(ctx, s.pub, s.log, events.New(events.LeftGroup, user.Email, map[string]string{
		"user_name": user.Name,
		"group":     group.Title,
	}))
	return nil
}

// Request is a membership with the user it belongs to.
type Request struct {
	UserID     primitive.ObjectID `json:"user_id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Membership models.Membership  `json:"membership"`
}

// ListRequests returns the group's memberships with the given status, or all
// memberships when status is empty.
func (s *Service) ListRequests(ctx context.Context, p authz.Principal, groupID primitive.ObjectID, status models.MembershipStatus) ([]Request, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, s.translate(err)
	}
	var statuses []models.MembershipStatus
	if status != "" {
		statuses = append(statuses, status)
	}
	users, err := s.users.ListByGroup(ctx, groupID, statuses...)
	if err != nil {
		return nil, apperr.Fault(err)
	}
	out := make([]Request, 0, len(users))
	for _, u := range users {
		m, ok := u.Membership(groupID)
		if !ok {
			continue
		}
		out = append(out, Request{UserID: u.ID, Name: u.Name, Email: u.Email, Membership: m})
	}
	return out, nil
}

func (s *Service) loadGroup(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("group not found")
	}
	return g, err
}

func (s *Service) translate(err error) error {
	if errors.Is(err, membership.ErrNoMembership) {
		return apperr.NotFoundf("membership not found")
	}
	err = membership.Translate(err)
	if apperr.Is(err, apperr.ServerFault) {
		s.log.Error("enrollment operation failed", zap.Error(err))
	}
	return err
}

// ordered returns lectures in the order of ids.
func ordered(lectures []models.Lecture, ids []primitive.ObjectID) []models.Lecture {
	byID := make(map[primitive.ObjectID]models.Lecture, len(lectures))
	for _, l := range lectures {
		byID[l.ID] = l
	}
	out := make([]models.Lecture, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
