// internal/app/services/accounts/feedback.go
package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const maxFeedbackLength = 2000

// SubmitFeedback stores p's feedback, replacing any earlier feedback.
func (s *Service) SubmitFeedback(ctx context.Context, p authz.Principal, text string) error {
	text = inputval.Clean(text)
	if text == "" {
		return apperr.Validationf("feedback is required")
	}
	if len([]rune(text)) > maxFeedbackLength {
		return apperr.Validationf("feedback must be at most %d characters", maxFeedbackLength)
	}
	err := s.users.SetFeedback(ctx, p.ID, &text)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("user not found")
	}
	if err != nil {
		return s.fault("submit_feedback", err)
	}
	return nil
}

// Feedback is one user's feedback.
type Feedback struct {
	UserID   primitive.ObjectID `json:"user_id"`
	Name     string             `json:"name"`
	Email    string             `json:"email"`
	Feedback string             `json:"feedback"`
}

// ListFeedback returns every user's feedback.
func (s *Service) ListFeedback(ctx context.Context, p authz.Principal) ([]Feedback, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	users, err := s.users.ListWithFeedback(ctx)
	if err != nil {
		return nil, s.fault("list_feedback", err)
	}
	out := make([]Feedback, 0, len(users))
	for _, u := range users {
		if u.Feedback == nil || strings.TrimSpace(*u.Feedback) == "" {
			continue
		}
		out = append(out, Feedback{UserID: u.ID, Name: u.Name, Email: u.Email, Feedback: *u.Feedback})
	}
	return out, nil
}

// DeleteFeedback clears a user's feedback.
func (s *Service) DeleteFeedback(ctx context.Context, p authz.Principal, userID primitive.ObjectID) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	err := s.users.SetFeedback(ctx, userID, nil)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("user not found")
	}
	if err != nil {
		return s.fault("delete_feedback", err)
	}
	return nil
}
