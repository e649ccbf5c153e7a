// internal/app/features/users/recovery.go
package users

import (
	"net/http"

	"github.com/dalemusser/classhub/internal/app/services/accounts"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type forgotPayload struct {
	Email string `json:"email"`
}

type resetPayload struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

type createUserPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	GroupID  string `json:"group_id"`
}

// throttled reports whether the request was refused by the login limiter,
// writing the 429 if so. Password recovery shares the login budget.
func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, email string) bool {
	if h.Logins == nil {
		return false
	}
	ok, msg := h.Logins.Check(r, email)
	if !ok {
		h.Log.Info("password recovery throttled", zap.String("ip", ratelimit.ClientIP(r)))
		respond.TooManyRequests(w, msg)
	}
	return !ok
}

// HandleForgotPassword handles POST /api/users/password/forgot. The reply is
// the same whether or not the email belongs to an account.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body forgotPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.throttled(w, r, body.Email) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "forgot password")
	defer cancel()

	if err := h.Accounts.RequestPasswordReset(ctx, body.Email); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "if that email has an account, a reset code is on its way")
}

// HandleResetPassword handles POST /api/users/password/reset.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.throttled(w, r, body.Email) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reset password")
	defer cancel()

	err := h.Accounts.ResetPassword(ctx, accounts.PasswordReset{
		Email:    body.Email,
		Code:     body.Code,
		Password: body.Password,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Logins != nil {
		h.Logins.ResetEmail(body.Email)
	}
	respond.Message(w, "password changed")
}

// HandleVerifyEmail handles POST /api/users/me/verify.
func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	var body struct {
		Code string `json:"code"`
	}
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if body.Code == "" {
		respond.Fail(w, apperr.Validation, "code is required")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "verify email")
	defer cancel()

	u, err := h.Accounts.VerifyEmail(ctx, p, body.Code)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, u)
}

// HandleResendVerification handles POST /api/users/me/verify/resend.
func (h *Handler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "resend verification")
	defer cancel()

	if err := h.Accounts.ResendVerification(ctx, p); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "verification code sent")
}

// HandleCreateUser handles POST /api/users.
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	var body createUserPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var groupID primitive.ObjectID
	if body.GroupID != "" {
		id, err := primitive.ObjectIDFromHex(body.GroupID)
		if err != nil {
			respond.Fail(w, apperr.Validation, "bad group_id")
			return
		}
		groupID = id
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create user")
	defer cancel()

	u, err := h.Accounts.CreateUser(ctx, p, accounts.NewAccount{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Phone:    body.Phone,
		Role:     body.Role,
		GroupID:  groupID,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, u)
}
