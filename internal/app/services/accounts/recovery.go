// internal/app/services/accounts/recovery.go
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/classhub/internal/app/store/emailverify"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/inputval"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// VerifyEmail marks p's email verified when code matches the one mailed
// to them.
func (s *Service) VerifyEmail(ctx context.Context, p authz.Principal, code string) (*models.User, error) {
	u, err := s.load(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if u.EmailVerified {
		return nil, apperr.Conflictf("email is already verified")
	}
	_, err = s.codes.Verify(ctx, u.ID, emailverify.PurposeVerifyEmail, strings.TrimSpace(code))
	switch {
	case errors.Is(err, emailverify.ErrNotFound), errors.Is(err, emailverify.ErrInvalidCode):
		return nil, apperr.Validationf("invalid or expired verification code")
	case errors.Is(err, emailverify.ErrTooManyAttempts):
		return nil, apperr.New(apperr.RateLimited, "too many attempts, request a new code")
	case err != nil:
		return nil, s.fault("verify_email", err)
	}
	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return nil, s.fault("verify_email", err)
	}
	s.log.Info("email verified", zap.String("user_id", u.ID.Hex()))
	return s.load(ctx, u.ID)
}

// ResendVerification mails p a fresh verification code.
func (s *Service) ResendVerification(ctx context.Context, p authz.Principal) error {
	u, err := s.load(ctx, p.ID)
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return apperr.Conflictf("email is already verified")
	}
	err = s.sendVerification(ctx, u, true)
	if errors.Is(err, emailverify.ErrTooManyResends) {
		return apperr.New(apperr.RateLimited, "too many codes requested, try again later")
	}
	if err != nil {
		return s.fault("resend_verification", err)
	}
	return nil
}

func (s *Service) sendVerification(ctx context.Context, u *models.User, isResend bool) error {
	res, err := s.codes.Create(ctx, u.ID, u.Email, emailverify.PurposeVerifyEmail, isResend)
	if err != nil {
		return err
	}
	events.PublishAll(ctx, s.pub, s.log, events.New(events.EmailVerification, u.Email, map[string]string{
		"user_name": u.Name,
		"code":      res.Code,
		"expires":   minutes(s.codes.Expiry()),
	}))
	return nil
}

// RequestPasswordReset mails a reset code to email. Unknown addresses and
// throttled requests succeed silently so the caller learns nothing about
// which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = inputval.NormalizeEmail(email)
	if !inputval.IsValidEmail(email) {
		return apperr.Validationf("A valid email address is required.")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.log.Info("password reset for unknown email")
		return nil
	}
	if err != nil {
		return s.fault("request_password_reset", err)
	}
	res, err := s.codes.Create(ctx, u.ID, u.Email, emailverify.PurposeResetPassword, true)
	if errors.Is(err, emailverify.ErrTooManyResends) {
		s.log.Warn("password reset throttled", zap.String("user_id", u.ID.Hex()))
		return nil
	}
	if err != nil {
		return s.fault("request_password_reset", err)
	}
	events.PublishAll(ctx, s.pub, s.log, events.New(events.PasswordReset, u.Email, map[string]string{
		"user_name": u.Name,
		"code":      res.Code,
		"expires":   minutes(s.codes.Expiry()),
	}))
	return nil
}

// PasswordReset holds a reset code and the new password.
type PasswordReset struct {
	Email    string `validate:"required,email,max=100" label:"Email"`
	Code     string `validate:"required,len=6,numeric" label:"Code"`
	Password string `validate:"required,min=10,max=72" label:"Password"`
}

// ResetPassword replaces the password of in.Email when in.Code matches the
// one mailed to it. A successful reset also verifies the email.
func (s *Service) ResetPassword(ctx context.Context, in PasswordReset) error {
	in.Email = inputval.NormalizeEmail(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if res := inputval.Validate(in); res.HasErrors() {
		return apperr.Validationf("%s", res.All())
	}
	invalid := apperr.Validationf("invalid or expired reset code")

	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return invalid
	}
	if err != nil {
		return s.fault("reset_password", err)
	}
	_, err = s.codes.Verify(ctx, u.ID, emailverify.PurposeResetPassword, in.Code)
	switch {
	case errors.Is(err, emailverify.ErrNotFound), errors.Is(err, emailverify.ErrInvalidCode):
		return invalid
	case errors.Is(err, emailverify.ErrTooManyAttempts):
		return apperr.New(apperr.RateLimited, "too many attempts, request a new code")
	case err != nil:
		return s.fault("reset_password", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return s.fault("reset_password", err)
	}
	if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return s.fault("reset_password", err)
	}
	if !u.EmailVerified {
		if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
			return s.fault("reset_password", err)
		}
	}
	s.log.Info("password reset", zap.String("user_id", u.ID.Hex()))
	events.PublishAll(ctx, s.pub, s.log, events.New(events.PasswordChanged, u.Email, map[string]string{
		"user_name": u.Name,
	}))
	return nil
}

func minutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
