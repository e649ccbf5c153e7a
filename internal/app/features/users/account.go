// internal/app/features/users/account.go
package users

import (
	"net/http"

	"github.com/dalemusser/classhub/internal/app/services/accounts"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/paging"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profilePayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// HandleRegister handles POST /api/users/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "register")
	defer cancel()

	u, err := h.Accounts.Register(ctx, accounts.Registration{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Phone:    body.Phone,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, u)
}

// HandleLogin handles POST /api/users/login. Attempts are throttled per
// client IP and per email.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginPayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Logins != nil {
		if ok, msg := h.Logins.Check(r, body.Email); !ok {
			h.Log.Info("login throttled", zap.String("ip", ratelimit.ClientIP(r)))
			respond.TooManyRequests(w, msg)
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	sess, err := h.Accounts.Login(ctx, body.Email, body.Password)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Logins != nil {
		h.Logins.ResetEmail(body.Email)
	}
	respond.OK(w, sess)
}

// ServeSelf handles GET /api/users/me.
func (h *Handler) ServeSelf(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get self")
	defer cancel()

	u, err := h.Accounts.GetSelf(ctx, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, u)
}

// HandleUpdateProfile handles PATCH /api/users/me.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	var body profilePayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	u, err := h.Accounts.UpdateProfile(ctx, p, accounts.Profile{Name: body.Name, Phone: body.Phone})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, u)
}

// ServeUser handles GET /api/users/{id}.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get user")
	defer cancel()

	u, err := h.Accounts.GetUser(ctx, p, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, u)
}

// HandleDelete handles DELETE /api/users/{id}. Users may delete themselves.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "delete user")
	defer cancel()

	if err := h.Accounts.DeleteUser(ctx, p, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "user deleted")
}

// ServeList handles GET /api/users?q=&after=&before=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list users")
	defer cancel()

	page, err := h.Accounts.ListUsers(ctx, p, query.Get(r, "q"), paging.ParseRequest(r))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, page)
}

// HandleUpdateRole handles PATCH /api/users/{id}/role.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if body.Role == "" {
		respond.Fail(w, apperr.Validation, "role is required")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update role")
	defer cancel()

	u, err := h.Accounts.UpdateRole(ctx, p, id, body.Role)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, u)
}
