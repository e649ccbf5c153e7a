// internal/app/store/lectures/tasks.go
package lecturestore

import (
	"context"
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PushTask appends t to the lecture, assigning an id when missing.
func (s *Store) PushTask(ctx context.Context, lectureID primitive.ObjectID, t models.Task) (models.Task, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Submissions == nil {
		t.Submissions = []models.Submission{}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := s.c.UpdateByID(ctx, lectureID, bson.M{
		"$push": bson.M{"tasks": t},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return models.Task{}, err
	}
	if res.MatchedCount == 0 {
		return models.Task{}, mongo.ErrNoDocuments
	}
	return t, nil
}

// UpdateTask changes a task's description and deadline. Nil arguments are
// left unchanged. It reports whether the task exists.
func (s *Store) UpdateTask(ctx context.Context, lectureID, taskID primitive.ObjectID, description *string, endDate *time.Time) (bool, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if description != nil {
		set["tasks.$.description"] = *description
	}
	if endDate != nil {
		set["tasks.$.end_date"] = *endDate
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": lectureID, "tasks._id": taskID},
		bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// PullTask removes a task. It reports whether the task existed.
func (s *Store) PullTask(ctx context.Context, lectureID, taskID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": lectureID, "tasks._id": taskID},
		bson.M{
			"$pull": bson.M{"tasks": bson.M{"_id": taskID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// UpsertSubmission overwrites the user's submission link and timestamps on
// the task, or appends a new submission. Score and feedback of an existing
// submission are kept.
func (s *Store) UpsertSubmission(ctx context.Context, lectureID, taskID primitive.ObjectID, sub models.Submission) error {
	for attempt := 0; attempt < 2; attempt++ {
		updated, err := s.overwriteSubmission(ctx, lectureID, taskID, sub)
		if err != nil || updated {
			return err
		}
		res, err := s.c.UpdateOne(ctx,
			bson.M{
				"_id": lectureID,
				"tasks": bson.M{"$elemMatch": bson.M{
					"_id":                 taskID,
					"submissions.user_id": bson.M{"$ne": sub.UserID},
				}},
			},
			bson.M{"$push": bson.M{"tasks.$.submissions": sub}})
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			return nil
		}
		// Either the task is gone or a concurrent submit inserted first.
	}
	return mongo.ErrNoDocuments
}

func (s *Store) overwriteSubmission(ctx context.Context, lectureID, taskID primitive.ObjectID, sub models.Submission) (bool, error) {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{
			bson.M{"t._id": taskID},
			bson.M{"s.user_id": sub.UserID},
		},
	})
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": lectureID,
			"tasks": bson.M{"$elemMatch": bson.M{
				"_id":                 taskID,
				"submissions.user_id": sub.UserID,
			}},
		},
		bson.M{"$set": bson.M{
			"tasks.$[t].submissions.$[s].link":              sub.Link,
			"tasks.$[t].submissions.$[s].submitted_at":      sub.SubmittedAt,
			"tasks.$[t].submissions.$[s].submitted_on_time": sub.SubmittedOnTime,
		}}, opts)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// GradeSubmission sets score and feedback on the user's submission. It
// reports whether the submission exists.
func (s *Store) GradeSubmission(ctx context.Context, lectureID, taskID, userID primitive.ObjectID, score float64, feedback *string) (bool, error) {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{
			bson.M{"t._id": taskID},
			bson.M{"s.user_id": userID},
		},
	})
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id": lectureID,
			"tasks": bson.M{"$elemMatch": bson.M{
				"_id":                 taskID,
				"submissions.user_id": userID,
			}},
		},
		bson.M{"$set": bson.M{
			"tasks.$[t].submissions.$[s].score":    score,
			"tasks.$[t].submissions.$[s].feedback": feedback,
		}}, opts)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
