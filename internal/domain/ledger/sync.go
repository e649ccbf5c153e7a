// internal/domain/ledger/sync.go
package ledger

import (
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LectureAdded appends an absent entry for a new lecture. Only approved
// members pick up new lectures; special members are scoped explicitly.
// It reports whether m changed.
func LectureAdded(m *models.Membership, lectureID primitive.ObjectID, now time.Time) bool {
	if m.Status != models.StatusApproved {
		return false
	}
	if _, ok := m.AttendanceFor(lectureID); ok {
		return false
	}
	m.Attendance = append(m.Attendance, absentEntry(lectureID))
	Recount(m)
	touch(m, now)
	return true
}

// LectureRemoved strips the attendance entry and task entries of a deleted
// lecture and drops it from a special subset. taskIDs are the tasks the
// lecture held, matched in addition to the lecture id on each entry.
// It reports whether m changed.
func LectureRemoved(m *models.Membership, lectureID primitive.ObjectID, taskIDs []primitive.ObjectID, now time.Time) bool {
	changed := false

	att := m.Attendance[:0:0]
	for _, a := range m.Attendance {
		if a.LectureID == lectureID {
			changed = true
			continue
		}
		att = append(att, a)
	}
	m.Attendance = att

	owned := make(map[primitive.ObjectID]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		owned[id] = struct{}{}
	}
	tasks := m.Tasks[:0:0]
	for _, t := range m.Tasks {
		if _, ok := owned[t.TaskID]; ok || t.LectureID == lectureID {
			changed = true
			continue
		}
		tasks = append(tasks, t)
	}
	m.Tasks = tasks

	if m.Special != nil {
		keep := m.Special.Lectures[:0:0]
		for _, id := range m.Special.Lectures {
			if id == lectureID {
				changed = true
				continue
			}
			keep = append(keep, id)
		}
		m.Special.Lectures = keep
	}

	if !changed {
		return false
	}
	if m.Attendance == nil {
		m.Attendance = []models.AttendanceEntry{}
	}
	if m.Tasks == nil {
		m.Tasks = []models.TaskEntry{}
	}
	Recount(m)
	touch(m, now)
	return true
}

// TaskAdded appends a blank ledger entry for a new task when m covers the
// task's lecture. It reports whether m changed.
func TaskAdded(m *models.Membership, lectureID primitive.ObjectID, t models.Task, now time.Time) bool {
	if !Eligible(*m, lectureID) {
		return false
	}
	if _, ok := m.TaskFor(t.ID); ok {
		return false
	}
	m.Tasks = append(m.Tasks, models.TaskEntry{TaskID: t.ID, LectureID: lectureID, TaskName: t.Description})
	touch(m, now)
	return true
}

// TaskRemoved drops the ledger entry for taskID. It reports whether m changed.
func TaskRemoved(m *models.Membership, taskID primitive.ObjectID, now time.Time) bool {
	out := m.Tasks[:0:0]
	for _, t := range m.Tasks {
		if t.TaskID != taskID {
			out = append(out, t)
		}
	}
	if len(out) == len(m.Tasks) {
		return false
	}
	m.Tasks = out
	Recount(m)
	touch(m, now)
	return true
}

// CheckIn marks the member present for lectureID at now. A missing entry is
// created rather than rejected.
func CheckIn(m *models.Membership, lectureID primitive.ObjectID, now time.Time) error {
	if !Eligible(*m, lectureID) {
		return ErrNotEligible
	}
	at := now
	for i, a := range m.Attendance {
		if a.LectureID != lectureID {
			continue
		}
		if a.Status == models.Present {
			return ErrAlreadyPresent
		}
		m.Attendance[i].Status = models.Present
		m.Attendance[i].AttendedAt = &at
		Recount(m)
		touch(m, now)
		return nil
	}
	m.Attendance = append(m.Attendance, models.AttendanceEntry{
		LectureID:  lectureID,
		Status:     models.Present,
		AttendedAt: &at,
	})
	Recount(m)
	touch(m, now)
	return nil
}

// Submit records a submission on the ledger mirror, creating the entry when
// it is missing. An existing score and feedback are kept until re-graded.
func Submit(m *models.Membership, lectureID primitive.ObjectID, t models.Task, link string, now time.Time) {
	at := now
	onTime := OnTime(now, t.EndDate)
	l := link
	for i := range m.Tasks {
		if m.Tasks[i].TaskID != t.ID {
			continue
		}
		m.Tasks[i].SubmissionLink = &l
		m.Tasks[i].SubmittedAt = &at
		m.Tasks[i].SubmittedOnTime = &onTime
		m.Tasks[i].TaskName = t.Description
		touch(m, now)
		return
	}
	m.Tasks = append(m.Tasks, models.TaskEntry{
		TaskID:          t.ID,
		LectureID:       lectureID,
		TaskName:        t.Description,
		SubmissionLink:  &l,
		SubmittedAt:     &at,
		SubmittedOnTime: &onTime,
	})
	touch(m, now)
}

// Grade sets score and feedback on the ledger mirror of taskID and
// recomputes TotalScore.
func Grade(m *models.Membership, taskID primitive.ObjectID, score float64, feedback *string, now time.Time) error {
	for i := range m.Tasks {
		if m.Tasks[i].TaskID != taskID {
			continue
		}
		s := score
		m.Tasks[i].Score = &s
		m.Tasks[i].Feedback = feedback
		Recount(m)
		touch(m, now)
		return nil
	}
	return ErrNoTaskEntry
}

// RenameTask updates the mirrored task name. It reports whether m changed.
func RenameTask(m *models.Membership, taskID primitive.ObjectID, name string, now time.Time) bool {
	for i := range m.Tasks {
		if m.Tasks[i].TaskID == taskID && m.Tasks[i].TaskName != name {
			m.Tasks[i].TaskName = name
			touch(m, now)
			return true
		}
	}
	return false
}
