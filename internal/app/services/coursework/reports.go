// internal/app/services/coursework/reports.go
package coursework

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemberSummary identifies a member in a report.
type MemberSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

func summarize(u models.User) MemberSummary {
	return MemberSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// AttendedMember is a member who checked in.
type AttendedMember struct {
	MemberSummary
	AttendedAt *time.Time `json:"attended_at"`
}

// LectureAttendanceReport splits a lecture's eligible members by check-in.
type LectureAttendanceReport struct {
	LectureID   primitive.ObjectID `json:"lecture_id"`
	Attended    []AttendedMember   `json:"attended"`
	NotAttended []MemberSummary    `json:"not_attended"`
}

// LectureAttendance lists which eligible members attended a lecture.
func (s *Service) LectureAttendance(ctx context.Context, p authz.Principal, lectureID primitive.ObjectID) (LectureAttendanceReport, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return LectureAttendanceReport{}, err
	}
	l, err := s.loadLecture(ctx, lectureID)
	if err != nil {
		return LectureAttendanceReport{}, err
	}
	members, err := s.users.ListByGroup(ctx, l.GroupID, models.StatusApproved, models.StatusSpecial)
	if err != nil {
		return LectureAttendanceReport{}, s.translate("lecture_attendance", err)
	}
	rep := LectureAttendanceReport{
		LectureID:   lectureID,
		Attended:    []AttendedMember{},
		NotAttended: []MemberSummary{},
	}
	for _, u := range members {
		m, ok := u.Membership(l.GroupID)
		if !ok || !ledger.Eligible(m, lectureID) {
			continue
		}
		if a, ok := m.AttendanceFor(lectureID); ok && a.Status == models.Present {
			rep.Attended = append(rep.Attended, AttendedMember{MemberSummary: summarize(u), AttendedAt: a.AttendedAt})
			continue
		}
		rep.NotAttended = append(rep.NotAttended, summarize(u))
	}
	return rep, nil
}

// AttendanceReport is one member's attendance ledger for a group.
type AttendanceReport struct {
	UserID               primitive.ObjectID       `json:"user_id"`
	GroupID              primitive.ObjectID       `json:"group_id"`
	Status               models.MembershipStatus  `json:"status"`
	Attendance           []models.AttendanceEntry `json:"attendance"`
	TotalAttendance      int                      `json:"total_attendance"`
	TotalAbsence         int                      `json:"total_absence"`
	AttendancePercentage float64                  `json:"attendance_percentage"`
}

// MemberAttendance returns userID's attendance for a group. Members may read
// their own; admins may read anyone's.
func (s *Service) MemberAttendance(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID) (AttendanceReport, error) {
	m, err := s.membershipFor(ctx, p, userID, groupID)
	if err != nil {
		return AttendanceReport{}, err
	}
	return AttendanceReport{
		UserID:               userID,
		GroupID:              groupID,
		Status:               m.Status,
		Attendance:           m.Attendance,
		TotalAttendance:      m.TotalAttendance,
		TotalAbsence:         m.TotalAbsence,
		AttendancePercentage: m.AttendancePercentage,
	}, nil
}

// SubmittedMember is a member with their submission.
type SubmittedMember struct {
	MemberSummary
	Submission models.Submission `json:"submission"`
}

// TaskSubmissionsReport splits a task's eligible members by submission.
type TaskSubmissionsReport struct {
	TaskID       primitive.ObjectID `json:"task_id"`
	Submitted    []SubmittedMember  `json:"submitted"`
	NotSubmitted []MemberSummary    `json:"not_submitted"`
}

// TaskSubmissions lists which eligible members submitted a task.
func (s *Service) TaskSubmissions(ctx context.Context, p authz.Principal, lectureID, taskID primitive.ObjectID) (TaskSubmissionsReport, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return TaskSubmissionsReport{}, err
	}
	l, t, err := s.loadTask(ctx, lectureID, taskID)
	if err != nil {
		return TaskSubmissionsReport{}, err
	}
	members, err := s.users.ListByGroup(ctx, l.GroupID, models.StatusApproved, models.StatusSpecial)
	if err != nil {
		return TaskSubmissionsReport{}, s.translate("task_submissions", err)
	}
	rep := TaskSubmissionsReport{
		TaskID:       taskID,
		Submitted:    []SubmittedMember{},
		NotSubmitted: []MemberSummary{},
	}
	for _, u := range members {
		m, ok := u.Membership(l.GroupID)
		if !ok || !ledger.Eligible(m, lectureID) {
			continue
		}
		if sub, ok := t.SubmissionBy(u.ID); ok {
			rep.Submitted = append(rep.Submitted, SubmittedMember{MemberSummary: summarize(u), Submission: sub})
			continue
		}
		rep.NotSubmitted = append(rep.NotSubmitted, summarize(u))
	}
	return rep, nil
}

// TasksReport is one member's task ledger for a group.
type TasksReport struct {
	UserID     primitive.ObjectID `json:"user_id"`
	GroupID    primitive.ObjectID `json:"group_id"`
	Tasks      []models.TaskEntry `json:"tasks"`
	TotalScore float64            `json:"total_score"`
}

// MemberTasks returns userID's task ledger for a group.
func (s *Service) MemberTasks(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID) (TasksReport, error) {
	m, err := s.membershipFor(ctx, p, userID, groupID)
	if err != nil {
		return TasksReport{}, err
	}
	return TasksReport{UserID: userID, GroupID: groupID, Tasks: m.Tasks, TotalScore: m.TotalScore}, nil
}

func (s *Service) membershipFor(ctx context.Context, p authz.Principal, userID, groupID primitive.ObjectID) (models.Membership, error) {
	if err := authz.RequireSelfOrAdmin(p, userID); err != nil {
		return models.Membership{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Membership{}, apperr.NotFoundf("user not found")
	}
	if err != nil {
		return models.Membership{}, s.translate("member_report", err)
	}
	m, ok := u.Membership(groupID)
	if !ok {
		return models.Membership{}, apperr.NotFoundf("membership not found")
	}
	return m, nil
}
