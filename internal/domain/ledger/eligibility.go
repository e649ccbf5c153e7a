// internal/domain/ledger/eligibility.go
package ledger

import (
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Eligibility is the set of lectures a member tracks attendance and tasks for.
// It is one of AllLectures, LectureSet, or NoLectures.
type Eligibility interface {
	Covers(lectureID primitive.ObjectID) bool
	eligibility()
}

// AllLectures covers every lecture of the group. Approved members hold it.
type AllLectures struct{}

func (AllLectures) Covers(primitive.ObjectID) bool { return true }
func (AllLectures) eligibility()                   {}

// LectureSet covers an explicit subset. Special members hold it.
type LectureSet struct {
	ids map[primitive.ObjectID]struct{}
}

// NewLectureSet builds a LectureSet from ids.
func NewLectureSet(ids []primitive.ObjectID) LectureSet {
	set := LectureSet{ids: make(map[primitive.ObjectID]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

func (s LectureSet) Covers(id primitive.ObjectID) bool {
	_, ok := s.ids[id]
	return ok
}
func (LectureSet) eligibility() {}

// NoLectures covers nothing. Pending and rejected members hold it.
type NoLectures struct{}

func (NoLectures) Covers(primitive.ObjectID) bool { return false }
func (NoLectures) eligibility()                   {}

// EligibilityOf derives the eligibility of m from its status.
func EligibilityOf(m models.Membership) Eligibility {
	switch m.Status {
	case models.StatusApproved:
		return AllLectures{}
	case models.StatusSpecial:
		if m.Special == nil {
			return NoLectures{}
		}
		return NewLectureSet(m.Special.Lectures)
	default:
		return NoLectures{}
	}
}

// Eligible reports whether m tracks lectureID.
func Eligible(m models.Membership, lectureID primitive.ObjectID) bool {
	return EligibilityOf(m).Covers(lectureID)
}

// MergeSpecial applies add and remove to the current special subset,
// keeping the order of current and appending new ids in the order given.
// Removal wins when an id appears in both lists.
func MergeSpecial(current, add, remove []primitive.ObjectID) []primitive.ObjectID {
	drop := make(map[primitive.ObjectID]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	seen := make(map[primitive.ObjectID]struct{}, len(current)+len(add))
	out := make([]primitive.ObjectID, 0, len(current)+len(add))
	for _, list := range [][]primitive.ObjectID{current, add} {
		for _, id := range list {
			if _, gone := drop[id]; gone {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
