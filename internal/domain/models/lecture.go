// internal/domain/models/lecture.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LectureCodeLength is the length of a lecture's attendance code.
const LectureCodeLength = 6

// Submission is a user's canonical submission for a task. There is at most
// one per user; resubmitting overwrites the link and timestamps.
type Submission struct {
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Link            string             `bson:"link" json:"link"`
	SubmittedAt     time.Time          `bson:"submitted_at" json:"submitted_at"`
	SubmittedOnTime bool               `bson:"submitted_on_time" json:"submitted_on_time"`
	Score           *float64           `bson:"score" json:"score"`
	Feedback        *string            `bson:"feedback" json:"feedback"`
}

// Task is an assignment embedded in a lecture.
type Task struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Description string             `bson:"description" json:"description"`
	EndDate     time.Time          `bson:"end_date" json:"end_date"`
	Submissions []Submission       `bson:"submissions" json:"submissions,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// SubmissionBy returns userID's submission, if any.
func (t Task) SubmissionBy(userID primitive.ObjectID) (Submission, bool) {
	for _, s := range t.Submissions {
		if s.UserID == userID {
			return s, true
		}
	}
	return Submission{}, false
}

// Attendee is an append-only check-in record on a lecture.
type Attendee struct {
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	AttendedAt time.Time          `bson:"attended_at" json:"attended_at"`
}

// Lecture is a session of a group.
type Lecture struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Article     string             `bson:"article,omitempty" json:"article,omitempty"`
	Resources   []string           `bson:"resources" json:"resources"`
	Code        string             `bson:"code" json:"code,omitempty"`

	Tasks []Task `bson:"tasks" json:"tasks"`

	Attendees       []Attendee `bson:"attendees" json:"attendees,omitempty"`
	AttendanceCount int        `bson:"attendance_count" json:"attendance_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Task returns the task with the given id, if any.
func (l Lecture) Task(taskID primitive.ObjectID) (Task, bool) {
	for _, t := range l.Tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return Task{}, false
}

// MemberView returns a copy without the code, submissions, and attendees,
// which only admins may see.
func (l Lecture) MemberView() Lecture {
	out := l
	out.Code = ""
	out.Attendees = nil
	out.Tasks = make([]Task, len(l.Tasks))
	for i, t := range l.Tasks {
		t.Submissions = nil
		out.Tasks[i] = t
	}
	return out
}
