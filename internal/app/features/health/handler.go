// internal/app/features/health/handler.go

// Package health reports whether the database and the event transport are
// reachable.
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/respond"
	"github.com/dalemusser/classhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Handler struct {
	Client *mongo.Client
	Events events.Transport // nil skips the event check
	Log    *zap.Logger
}

func NewHandler(client *mongo.Client, transport events.Transport, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Events: transport, Log: logger}
}

type report struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Events   string `json:"events,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// 200 {"status":"ok","database":"connected","events":"ok"} when healthy.
// 503 with status "error" when the database cannot be pinged. A backed-up
// or closed event transport is reported as "degraded" with 200.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	rep := report{Status: "ok", Database: "connected"}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		rep.Status = "error"
		rep.Database = "disconnected"
		rep.Message = "Database unavailable"
		respond.JSON(w, http.StatusServiceUnavailable, rep)
		return
	}

	if h.Events != nil {
		rep.Events = "ok"
		if err := h.Events.Check(); err != nil {
			h.Log.Warn("health-check: event transport", zap.Error(err))
			rep.Status = "degraded"
			rep.Events = err.Error()
		}
	}

	respond.OK(w, rep)
}
