// internal/app/services/membership/membership.go

// Package membership applies ledger changes to stored memberships with
// optimistic concurrency.
//
// Every write is guarded by the membership's revision. When another request
// changed the record in between, the record is reloaded and the change is
// decided again, so a transition whose precondition no longer holds fails
// instead of being applied twice.
package membership

import (
	"context"
	"errors"
	"time"

	userstore "github.com/dalemusser/classhub/internal/app/store/users"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// maxAttempts bounds reload-and-retry on revision conflicts.
const maxAttempts = 3

// ErrNoMembership means the user has no membership for the group.
var ErrNoMembership = errors.New("user has no membership for this group")

// Change mutates m and reports whether it should be written back.
type Change func(m *models.Membership, now time.Time) (bool, error)

// Mutator loads, changes, and writes memberships.
type Mutator struct {
	users *userstore.Store
	now   func() time.Time
}

// NewMutator returns a Mutator over users.
func NewMutator(users *userstore.Store, now func() time.Time) *Mutator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Mutator{users: users, now: now}
}

// Apply runs change against userID's membership for groupID. It returns the
// user as loaded and the membership as written.
//
// Errors: mongo.ErrNoDocuments when the user is missing, ErrNoMembership when
// the membership is missing, the change's own error, or
// userstore.ErrStaleMembership when every attempt lost a race.
func (m *Mutator) Apply(ctx context.Context, userID, groupID primitive.ObjectID, change Change) (*models.User, models.Membership, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		u, err := m.users.GetByID(ctx, userID)
		if err != nil {
			return nil, models.Membership{}, err
		}
		mem, err := m.applyLoaded(ctx, u, groupID, change)
		if errors.Is(err, userstore.ErrStaleMembership) {
			lastErr = err
			continue
		}
		return u, mem, err
	}
	return nil, models.Membership{}, lastErr
}

// ApplyEach runs change against each loaded user's membership for groupID.
// A user whose stored record moved on since loading is reloaded and retried.
// Users without a membership for the group are skipped. It returns how many
// memberships were written.
func (m *Mutator) ApplyEach(ctx context.Context, users []models.User, groupID primitive.ObjectID, change Change) (int, error) {
	written := 0
	for i := range users {
		u := &users[i]
		before, ok := u.Membership(groupID)
		if !ok {
			continue
		}
		mem, err := m.applyLoaded(ctx, u, groupID, change)
		if errors.Is(err, userstore.ErrStaleMembership) {
			_, mem, err = m.Apply(ctx, u.ID, groupID, change)
			if errors.Is(err, ErrNoMembership) || errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
		}
		if err != nil {
			return written, err
		}
		if mem.Revision != before.Revision {
			written++
		}
	}
	return written, nil
}

func (m *Mutator) applyLoaded(ctx context.Context, u *models.User, groupID primitive.ObjectID, change Change) (models.Membership, error) {
	mem, ok := u.Membership(groupID)
	if !ok {
		return models.Membership{}, ErrNoMembership
	}
	prev := mem.Revision
	changed, err := change(&mem, m.now())
	if err != nil {
		return models.Membership{}, err
	}
	if !changed {
		return mem, nil
	}
	if err := m.users.ReplaceMembership(ctx, u.ID, prev, mem); err != nil {
		return models.Membership{}, err
	}
	return mem, nil
}

// Translate maps ledger and store errors to service failures. Errors it does
// not recognise are wrapped as faults.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInvalidTransition):
		return apperr.Conflictf("membership is not in a state that allows this change")
	case errors.Is(err, ledger.ErrNotEligible), errors.Is(err, ErrNoMembership):
		return apperr.Forbiddenf("you are not enrolled for this lecture")
	case errors.Is(err, ledger.ErrAlreadyPresent):
		return apperr.Conflictf("attendance already recorded for this lecture")
	case errors.Is(err, ledger.ErrNoTaskEntry):
		return apperr.NotFoundf("task not found on this membership")
	case errors.Is(err, userstore.ErrStaleMembership):
		return apperr.Conflictf("membership was changed by another request, please retry")
	case errors.Is(err, userstore.ErrMembershipExists):
		return apperr.Conflictf("a request for this group already exists")
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFoundf("user not found")
	default:
		return apperr.Wrap(err)
	}
}

// Transition adapts a ledger transition that always writes on success.
func Transition(fn func(m *models.Membership, now time.Time) error) Change {
	return func(m *models.Membership, now time.Time) (bool, error) {
		if err := fn(m, now); err != nil {
			return false, err
		}
		return true, nil
	}
}
