// internal/app/features/users/handler.go
package users

import (
	"github.com/dalemusser/classhub/internal/app/services/accounts"
	"github.com/dalemusser/classhub/internal/app/services/coursework"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Handler serves account endpoints.
type Handler struct {
	Accounts   *accounts.Service
	Coursework *coursework.Service
	Logins     *ratelimit.LoginLimiter
	Log        *zap.Logger
}

func NewHandler(acc *accounts.Service, cw *coursework.Service, logins *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   acc,
		Coursework: cw,
		Logins:     logins,
		Log:        logger,
	}
}
