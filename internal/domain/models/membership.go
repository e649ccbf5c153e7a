// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipStatus is the enrollment state of a user in a group.
type MembershipStatus string

const (
	StatusPending  MembershipStatus = "pending"
	StatusApproved MembershipStatus = "approved"
	StatusRejected MembershipStatus = "rejected"
	StatusSpecial  MembershipStatus = "special"
)

// Valid reports whether s is a known status.
func (s MembershipStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSpecial:
		return true
	}
	return false
}

// RequestType records how the membership was started.
type RequestType string

const (
	RequestJoin   RequestType = "join"
	RequestInvite RequestType = "invite"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	return t == RequestJoin || t == RequestInvite
}

// AttendanceStatus is the per-lecture attendance state of a member.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
)

// AttendanceEntry is one row of a member's attendance ledger.
type AttendanceEntry struct {
	LectureID  primitive.ObjectID `bson:"lecture_id" json:"lecture_id"`
	Status     AttendanceStatus   `bson:"attendance_status" json:"attendance_status"`
	AttendedAt *time.Time         `bson:"attended_at" json:"attended_at"`
}

// TaskEntry is one row of a member's task ledger. It mirrors the canonical
// submission stored on the lecture's task.
type TaskEntry struct {
	TaskID          primitive.ObjectID `bson:"task_id" json:"task_id"`
	LectureID       primitive.ObjectID `bson:"lecture_id" json:"lecture_id"`
	TaskName        string             `bson:"task_name" json:"task_name"`
	SubmissionLink  *string            `bson:"submission_link" json:"submission_link"`
	SubmittedAt     *time.Time         `bson:"submitted_at" json:"submitted_at"`
	SubmittedOnTime *bool              `bson:"submitted_on_time" json:"submitted_on_time"`
	Score           *float64           `bson:"score" json:"score"`
	Feedback        *string            `bson:"feedback" json:"feedback"`
}

// SpecialAccess holds the explicit lecture subset of a special member.
// It is set only while the membership status is special.
type SpecialAccess struct {
	Lectures []primitive.ObjectID `bson:"lectures" json:"lectures"`
}

// Covers reports whether lectureID is part of the special subset.
func (s *SpecialAccess) Covers(lectureID primitive.ObjectID) bool {
	if s == nil {
		return false
	}
	for _, id := range s.Lectures {
		if id == lectureID {
			return true
		}
	}
	return false
}

// Membership is the per-user-per-group state bundle embedded in User.
//
// Revision increases on every write and guards concurrent transitions:
// writers replace the record only when the stored revision still matches
// the one they read.
type Membership struct {
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	Status      MembershipStatus   `bson:"status" json:"status"`
	RequestType RequestType        `bson:"request_type" json:"request_type"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`

	Special *SpecialAccess `bson:"special,omitempty" json:"special,omitempty"`

	Attendance           []AttendanceEntry `bson:"attendance" json:"attendance"`
	TotalAttendance      int               `bson:"total_attendance" json:"total_attendance"`
	TotalAbsence         int               `bson:"total_absence" json:"total_absence"`
	AttendancePercentage float64           `bson:"attendance_percentage" json:"attendance_percentage"`

	Tasks      []TaskEntry `bson:"tasks" json:"tasks"`
	TotalScore float64     `bson:"total_score" json:"total_score"`

	Revision    int64     `bson:"revision" json:"-"`
	RequestedAt time.Time `bson:"requested_at" json:"requested_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// AttendanceFor returns the ledger entry for lectureID, if any.
func (m Membership) AttendanceFor(lectureID primitive.ObjectID) (AttendanceEntry, bool) {
	for _, a := range m.Attendance {
		if a.LectureID == lectureID {
			return a, true
		}
	}
	return AttendanceEntry{}, false
}

// TaskFor returns the ledger entry for taskID, if any.
func (m Membership) TaskFor(taskID primitive.ObjectID) (TaskEntry, bool) {
	for _, t := range m.Tasks {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return TaskEntry{}, false
}
