// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/classhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
//
// Collections must exist before the first transaction touches them, so this
// runs ahead of any request.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll, log); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema, log); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("lectures", lecturesSchema())
	ensure("contact_messages", contactSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, log *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		log.Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	log.Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandMatches(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func membershipSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"group_id", "status", "attendance", "tasks", "revision"},
		"properties": bson.M{
			"group_id": bson.M{"bsonType": "objectId"},
			"status": bson.M{"enum": bson.A{
				string(models.StatusPending),
				string(models.StatusApproved),
				string(models.StatusRejected),
				string(models.StatusSpecial),
			}},
			"request_type":          bson.M{"enum": bson.A{string(models.RequestJoin), string(models.RequestInvite)}},
			"attendance":            bson.M{"bsonType": "array"},
			"tasks":                 bson.M{"bsonType": "array"},
			"total_attendance":      bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			"total_absence":         bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			"attendance_percentage": bson.M{"bsonType": bson.A{"double", "int"}, "minimum": 0, "maximum": 100},
			"revision":              bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
		},
	}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "role"},
			"properties": bson.M{
				"name":           nonBlank,
				"email":          nonBlank,
				"role":           bson.M{"enum": bson.A{models.RoleUser, models.RoleAdmin}},
				"email_verified": bson.M{"bsonType": "bool"},
				"memberships":    bson.M{"bsonType": "array", "items": membershipSchema()},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "course_type", "start_date", "end_date", "price"},
			"properties": bson.M{
				"title":          nonBlank,
				"course_type":    bson.M{"enum": bson.A{models.CourseOnline, models.CourseOffline}},
				"start_date":     bson.M{"bsonType": "date"},
				"end_date":       bson.M{"bsonType": "date"},
				"price":          bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0},
				"members":        bson.M{"bsonType": "array"},
				"allowed_emails": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func lecturesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "title", "code"},
			"properties": bson.M{
				"group_id":         bson.M{"bsonType": "objectId"},
				"title":            nonBlank,
				"code":             bson.M{"bsonType": "string", "pattern": "^[A-Z0-9]{6}$"},
				"tasks":            bson.M{"bsonType": "array"},
				"attendees":        bson.M{"bsonType": "array"},
				"attendance_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func contactSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "message", "is_replied"},
			"properties": bson.M{
				"name":       bson.M{"bsonType": "string", "maxLength": 50},
				"email":      bson.M{"bsonType": "string", "maxLength": 100},
				"message":    nonBlank,
				"is_replied": bson.M{"bsonType": "bool"},
			},
		},
	}
}
