// internal/app/features/contact/handler.go
package contact

import (
	"net/http"
	"strconv"

	contactsvc "github.com/dalemusser/classhub/internal/app/services/contact"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the contact form and the admin inbox.
type Handler struct {
	Contact *contactsvc.Service
	Limiter *ratelimit.Limiter // per client IP; nil disables
	Log     *zap.Logger
}

func NewHandler(svc *contactsvc.Service, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		Contact: svc,
		Limiter: limiter,
		Log:     logger,
	}
}

type messagePayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// HandleSubmit handles POST /api/contact.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var body messagePayload
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Limiter != nil && !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		respond.TooManyRequests(w, "Too many messages. Please try again later.")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit contact")
	defer cancel()

	m, err := h.Contact.Submit(ctx, contactsvc.Message{Name: body.Name, Email: body.Email, Message: body.Message})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Created(w, m)
}

// ServeList handles GET /api/contact?unreplied=true.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	unreplied, _ := strconv.ParseBool(r.URL.Query().Get("unreplied"))
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list contact")
	defer cancel()

	msgs, err := h.Contact.List(ctx, p, unreplied)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, msgs)
}

// HandleReply handles POST /api/contact/{id}/reply.
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var body struct {
		Reply string `json:"reply"`
	}
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reply contact")
	defer cancel()

	m, err := h.Contact.Reply(ctx, p, id, body.Reply)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, m)
}

// HandleDelete handles DELETE /api/contact/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.FromRequest(r)
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete contact")
	defer cancel()

	if err := h.Contact.Delete(ctx, p, id); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, "message deleted")
}
