// internal/app/store/users/memberships.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrMembershipExists means the user already has a membership for the group.
	ErrMembershipExists = errors.New("user already has a membership for this group")

	// ErrStaleMembership means the membership changed (or vanished) since it
	// was read. Callers reload and decide again.
	ErrStaleMembership = errors.New("membership was changed by another request")
)

// InsertMembership adds m to the user's memberships unless one for the same
// group already exists.
func (s *Store) InsertMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "memberships.group_id": bson.M{"$ne": m.GroupID}},
		bson.M{
			"$push": bson.M{"memberships": m},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return mongo.ErrNoDocuments
	}
	return ErrMembershipExists
}

// ReplaceMembership overwrites the user's membership for m.GroupID, but only
// if the stored revision still equals prevRevision.
func (s *Store) ReplaceMembership(ctx context.Context, userID primitive.ObjectID, prevRevision int64, m models.Membership) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": userID,
			"memberships": bson.M{"$elemMatch": bson.M{
				"group_id": m.GroupID,
				"revision": prevRevision,
			}},
		},
		bson.M{"$set": bson.M{
			"memberships.$": m,
			"updated_at":    time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStaleMembership
	}
	return nil
}

// RemoveMembership drops the user's membership for groupID. It reports
// whether one was removed.
func (s *Store) RemoveMembership(ctx context.Context, userID, groupID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "memberships.group_id": groupID},
		bson.M{
			"$pull": bson.M{"memberships": bson.M{"group_id": groupID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveMembershipAt drops the membership for groupID only if it is still
// at revision. Returns ErrStaleMembership otherwise.
func (s *Store) RemoveMembershipAt(ctx context.Context, userID, groupID primitive.ObjectID, revision int64) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": userID,
			"memberships": bson.M{"$elemMatch": bson.M{
				"group_id": groupID,
				"revision": revision,
			}},
		},
		bson.M{
			"$pull": bson.M{"memberships": bson.M{"group_id": groupID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrStaleMembership
	}
	return nil
}

// PullGroupFromAll removes every membership of groupID. Returns the number
// of users changed.
func (s *Store) PullGroupFromAll(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"memberships.group_id": groupID},
		bson.M{"$pull": bson.M{"memberships": bson.M{"group_id": groupID}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// RenameTaskEntries updates the mirrored task name on every ledger entry for
// taskID and bumps the revision of each touched membership.
func (s *Store) RenameTaskEntries(ctx context.Context, taskID primitive.ObjectID, name string) (int64, error) {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{
			bson.M{"m.tasks.task_id": taskID},
			bson.M{"t.task_id": taskID},
		},
	})
	res, err := s.c.UpdateMany(ctx,
		bson.M{"memberships.tasks.task_id": taskID},
		bson.M{
			"$set": bson.M{"memberships.$[m].tasks.$[t].task_name": name},
			"$inc": bson.M{"memberships.$[m].revision": 1},
		}, opts)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
