// internal/domain/ledger/transitions.go
package ledger

import (
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewPending starts a membership waiting for admin review.
func NewPending(groupID primitive.ObjectID, rt models.RequestType, note string, now time.Time) models.Membership {
	return models.Membership{
		GroupID:     groupID,
		Status:      models.StatusPending,
		RequestType: rt,
		Note:        note,
		Attendance:  []models.AttendanceEntry{},
		Tasks:       []models.TaskEntry{},
		Revision:    1,
		RequestedAt: now,
		UpdatedAt:   now,
	}
}

// NewApproved starts a membership that skipped review through the group's
// allow-list. lectures are all lectures of the group.
func NewApproved(groupID, userID primitive.ObjectID, rt models.RequestType, note string, lectures []models.Lecture, now time.Time) models.Membership {
	m := NewPending(groupID, rt, note, now)
	m.Status = models.StatusApproved
	m.Attendance = BuildAttendance(LectureIDs(lectures), nil)
	m.Tasks = BuildTasks(lectures, userID)
	Recount(&m)
	return m
}

// Approve moves a pending membership to approved. Attendance entries that
// already exist are kept and only missing lectures are appended. lectures are
// all lectures of the group.
func Approve(m *models.Membership, userID primitive.ObjectID, lectures []models.Lecture, now time.Time) error {
	if m.Status != models.StatusPending {
		return ErrInvalidTransition
	}
	m.Status = models.StatusApproved
	m.Special = nil
	m.Attendance = AppendMissing(m.Attendance, LectureIDs(lectures))
	m.Tasks = BuildTasks(lectures, userID)
	Recount(m)
	touch(m, now)
	return nil
}

// GrantSpecial moves a pending membership to special, scoped to exactly
// lectures. The attendance ledger starts fresh with every lecture absent.
func GrantSpecial(m *models.Membership, userID primitive.ObjectID, lectures []models.Lecture, now time.Time) error {
	if m.Status != models.StatusPending {
		return ErrInvalidTransition
	}
	ids := LectureIDs(lectures)
	m.Status = models.StatusSpecial
	m.Special = &models.SpecialAccess{Lectures: ids}
	m.Attendance = BuildAttendance(ids, nil)
	m.Tasks = BuildTasks(lectures, userID)
	Recount(m)
	touch(m, now)
	return nil
}

// UpdateSpecial rescopes a special membership to lectures. Attendance for
// lectures that stay keeps its status and timestamp.
func UpdateSpecial(m *models.Membership, userID primitive.ObjectID, lectures []models.Lecture, now time.Time) error {
	if m.Status != models.StatusSpecial {
		return ErrInvalidTransition
	}
	ids := LectureIDs(lectures)
	m.Special = &models.SpecialAccess{Lectures: ids}
	m.Attendance = BuildAttendance(ids, m.Attendance)
	m.Tasks = BuildTasks(lectures, userID)
	Recount(m)
	touch(m, now)
	return nil
}

// ResetToPending sends an approved or rejected membership back to review.
// Ledgers are left untouched.
func ResetToPending(m *models.Membership, now time.Time) error {
	if m.Status != models.StatusApproved && m.Status != models.StatusRejected {
		return ErrInvalidTransition
	}
	m.Status = models.StatusPending
	touch(m, now)
	return nil
}

// CanReject reports whether m may be rejected. Rejection deletes the record,
// so there is no mutation to apply.
func CanReject(m models.Membership) error {
	if m.Status != models.StatusPending {
		return ErrInvalidTransition
	}
	return nil
}
