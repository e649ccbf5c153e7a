// internal/domain/ledger/ledger.go

// Package ledger holds the pure rules that keep a membership's attendance and
// task ledgers consistent with the lectures and tasks that exist.
//
// Functions mutate the membership passed to them and never touch storage.
// Counters are always recomputed from the ledger, so
// TotalAttendance+TotalAbsence equals len(Attendance) after every call.
package ledger

import (
	"math"
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Percentage returns present/(present+absent)*100 rounded to two decimals,
// or 0 when there are no entries.
func Percentage(present, absent int) float64 {
	total := present + absent
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

// Recount recomputes every derived counter on m from its ledgers.
func Recount(m *models.Membership) {
	present, absent := 0, 0
	for _, a := range m.Attendance {
		if a.Status == models.Present {
			present++
		} else {
			absent++
		}
	}
	m.TotalAttendance = present
	m.TotalAbsence = absent
	m.AttendancePercentage = Percentage(present, absent)
	m.TotalScore = SumScores(m.Tasks)
}

// SumScores adds up every non-null score.
func SumScores(tasks []models.TaskEntry) float64 {
	var sum float64
	for _, t := range tasks {
		if t.Score != nil {
			sum += *t.Score
		}
	}
	return sum
}

// BuildAttendance returns one entry per lecture id, in order. Entries that
// already exist in prior keep their status and timestamp; the rest are absent.
func BuildAttendance(lectureIDs []primitive.ObjectID, prior []models.AttendanceEntry) []models.AttendanceEntry {
	byLecture := make(map[primitive.ObjectID]models.AttendanceEntry, len(prior))
	for _, a := range prior {
		byLecture[a.LectureID] = a
	}
	out := make([]models.AttendanceEntry, 0, len(lectureIDs))
	seen := make(map[primitive.ObjectID]struct{}, len(lectureIDs))
	for _, id := range lectureIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := byLecture[id]; ok {
			out = append(out, a)
			continue
		}
		out = append(out, absentEntry(id))
	}
	return out
}

// AppendMissing keeps att as is and appends an absent entry for every lecture
// id it does not already cover.
func AppendMissing(att []models.AttendanceEntry, lectureIDs []primitive.ObjectID) []models.AttendanceEntry {
	have := make(map[primitive.ObjectID]struct{}, len(att))
	for _, a := range att {
		have[a.LectureID] = struct{}{}
	}
	out := append([]models.AttendanceEntry(nil), att...)
	for _, id := range lectureIDs {
		if _, ok := have[id]; ok {
			continue
		}
		have[id] = struct{}{}
		out = append(out, absentEntry(id))
	}
	return out
}

// BuildTasks returns one ledger entry per task of lectures, mirroring the
// canonical submission userID has on that task, if any.
func BuildTasks(lectures []models.Lecture, userID primitive.ObjectID) []models.TaskEntry {
	var out []models.TaskEntry
	for _, l := range lectures {
		for _, t := range l.Tasks {
			out = append(out, Mirror(l.ID, t, userID))
		}
	}
	if out == nil {
		out = []models.TaskEntry{}
	}
	return out
}

// Mirror builds the ledger entry for task t as seen by userID.
func Mirror(lectureID primitive.ObjectID, t models.Task, userID primitive.ObjectID) models.TaskEntry {
	e := models.TaskEntry{TaskID: t.ID, LectureID: lectureID, TaskName: t.Description}
	if s, ok := t.SubmissionBy(userID); ok {
		link := s.Link
		at := s.SubmittedAt
		onTime := s.SubmittedOnTime
		e.SubmissionLink = &link
		e.SubmittedAt = &at
		e.SubmittedOnTime = &onTime
		e.Score = s.Score
		e.Feedback = s.Feedback
	}
	return e
}

// LectureIDs returns the ids of lectures, in order.
func LectureIDs(lectures []models.Lecture) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(lectures))
	for i, l := range lectures {
		ids[i] = l.ID
	}
	return ids
}

// OnTime reports whether a submission at now meets endDate. A submission at
// exactly the deadline counts as on time.
func OnTime(now, endDate time.Time) bool {
	return !now.After(endDate)
}

func absentEntry(lectureID primitive.ObjectID) models.AttendanceEntry {
	return models.AttendanceEntry{LectureID: lectureID, Status: models.Absent}
}

func touch(m *models.Membership, now time.Time) {
	m.Revision++
	m.UpdatedAt = now
}
