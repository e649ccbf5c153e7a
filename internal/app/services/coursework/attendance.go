// internal/app/services/coursework/attendance.go
package coursework

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CheckIn marks p present for a lecture when code matches the lecture's
// attendance code, and records p on the lecture's attendee list.
//
// Failures, in order: NotFound for an unknown lecture, Validation for a
// wrong code, Forbidden when p is not eligible for the lecture, Conflict
// when p is already present.
func (s *Service) CheckIn(ctx context.Context, p authz.Principal, lectureID primitive.ObjectID, code string) (models.Membership, error) {
	if p.IsZero() {
		return models.Membership{}, apperr.New(apperr.Unauthorized, "sign in required")
	}
	l, err := s.loadLecture(ctx, lectureID)
	if err != nil {
		return models.Membership{}, err
	}
	if strings.ToUpper(strings.TrimSpace(code)) != l.Code {
		return models.Membership{}, apperr.Validationf("invalid attendance code")
	}

	var mem models.Membership
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		var at time.Time
		_, mem, err = s.mut.Apply(ctx, p.ID, l.GroupID, func(m *models.Membership, now time.Time) (bool, error) {
			at = now
			return true, ledger.CheckIn(m, lectureID, now)
		})
		if err != nil {
			return err
		}
		return s.lectures.AppendAttendee(ctx, lectureID, p.ID, at)
	})
	if err != nil {
		return models.Membership{}, s.translate("check_in", err)
	}
	s.log.Info("attendance recorded",
		zap.String("lecture_id", lectureID.Hex()),
		zap.String("user_id", p.ID.Hex()))
	return mem, nil
}
