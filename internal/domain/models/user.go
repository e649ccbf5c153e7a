// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered account.
//
// NOTE:
//   - Group membership is embedded on User as Memberships, one entry per
//     group the user has requested or joined. Rejected requests are removed,
//     not kept with a rejected status.
//   - Email is stored lower-cased and is unique across users.
//   - EmailVerified is set once the user enters a code mailed to Email, or
//     when an admin creates the account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Phone        string             `bson:"phone" json:"phone"`
	Role         string             `bson:"role" json:"role"` // user | admin

	EmailVerified bool `bson:"email_verified" json:"email_verified"`

	Feedback *string `bson:"feedback,omitempty" json:"feedback,omitempty"`

	Memberships []Membership `bson:"memberships" json:"memberships"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Membership returns the user's membership record for groupID.
func (u User) Membership(groupID primitive.ObjectID) (Membership, bool) {
	for _, m := range u.Memberships {
		if m.GroupID == groupID {
			return m, true
		}
	}
	return Membership{}, false
}
