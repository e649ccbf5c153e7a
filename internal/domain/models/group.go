// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course delivery types.
const (
	CourseOnline  = "online"
	CourseOffline = "offline"
)

// CourseDetail is one section of a course's marketing description.
type CourseDetail struct {
	Title            string `bson:"title" json:"title"`
	ShortDescription string `bson:"short_description" json:"short_description"`
	Description      string `bson:"description" json:"description"`
	Image            string `bson:"image" json:"image"`
}

// RosterEntry is one user on a group's roster.
type RosterEntry struct {
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
}

// Group represents a course.
//
// NOTE:
//   - Members is a secondary roster. The authoritative enrollment state
//     lives on each user's Membership for this group.
//   - AllowedEmails is a single-use allow-list: an email is removed when its
//     owner joins through it.
type Group struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Title      string             `bson:"title" json:"title"`
	TitleCI    string             `bson:"title_ci" json:"-"`
	CourseType string             `bson:"course_type" json:"course_type"` // online | offline
	Location   string             `bson:"location,omitempty" json:"location,omitempty"`
	StartDate  time.Time          `bson:"start_date" json:"start_date"`
	EndDate    time.Time          `bson:"end_date" json:"end_date"`
	Price      float64            `bson:"price" json:"price"`

	CourseDetails   []CourseDetail `bson:"course_details" json:"course_details"`
	AboutCourse     []string       `bson:"about_course" json:"about_course"`
	InstructorName  string         `bson:"instructor_name,omitempty" json:"instructor_name,omitempty"`
	ImageCourse     string         `bson:"image_course,omitempty" json:"image_course,omitempty"`
	ImageInstructor string         `bson:"image_instructor,omitempty" json:"image_instructor,omitempty"`

	Members       []RosterEntry `bson:"members" json:"members"`
	AllowedEmails []string      `bson:"allowed_emails" json:"allowed_emails"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID is on the roster.
func (g Group) HasMember(userID primitive.ObjectID) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
