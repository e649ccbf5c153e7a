// internal/app/features/lectures/handler.go
package lectures

import (
	"github.com/dalemusser/classhub/internal/app/services/coursework"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Handler serves lecture, attendance, and task endpoints.
type Handler struct {
	Coursework *coursework.Service
	CheckIns   *ratelimit.CheckInLimiter
	Log        *zap.Logger
}

func NewHandler(cw *coursework.Service, checkIns *ratelimit.CheckInLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Coursework: cw,
		CheckIns:   checkIns,
		Log:        logger,
	}
}
