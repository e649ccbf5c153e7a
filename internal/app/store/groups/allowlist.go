// internal/app/store/groups/allowlist.go
package groupstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConsumeAllowedEmail removes email from the group's allow-list and reports
// whether it was there. Two concurrent callers cannot both consume the same
// entry.
func (s *Store) ConsumeAllowedEmail(ctx context.Context, groupID primitive.ObjectID, email string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "allowed_emails": email},
		bson.M{
			"$pull": bson.M{"allowed_emails": email},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddAllowedEmails adds emails that are not already listed.
func (s *Store) AddAllowedEmails(ctx context.Context, groupID primitive.ObjectID, emails []string) error {
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"allowed_emails": bson.M{"$each": emails}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// SetAllowedEmails replaces the allow-list.
func (s *Store) SetAllowedEmails(ctx context.Context, groupID primitive.ObjectID, emails []string) error {
	if emails == nil {
		emails = []string{}
	}
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$set": bson.M{"allowed_emails": emails, "updated_at": time.Now().UTC()},
	})
	return err
}

// PullAllowedEmailsFromOthers removes emails from every group except keep.
func (s *Store) PullAllowedEmailsFromOthers(ctx context.Context, keep primitive.ObjectID, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$ne": keep}, "allowed_emails": bson.M{"$in": emails}},
		bson.M{"$pull": bson.M{"allowed_emails": bson.M{"$in": emails}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// RemoveAllowedEmail deletes email from the allow-list. It reports whether
// the email was listed.
func (s *Store) RemoveAllowedEmail(ctx context.Context, groupID primitive.ObjectID, email string) (bool, error) {
	return s.ConsumeAllowedEmail(ctx, groupID, email)
}
