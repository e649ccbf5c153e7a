// internal/app/features/groups/handler.go
package groups

import (
	"github.com/dalemusser/classhub/internal/app/services/catalog"
	"github.com/dalemusser/classhub/internal/app/services/coursework"
	"github.com/dalemusser/classhub/internal/app/services/enrollment"
	"go.uber.org/zap"
)

// Handler serves the group catalog and enrollment endpoints.
type Handler struct {
	Catalog    *catalog.Service
	Enrollment *enrollment.Service
	Coursework *coursework.Service
	Log        *zap.Logger
}

func NewHandler(cat *catalog.Service, enr *enrollment.Service, cw *coursework.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Catalog:    cat,
		Enrollment: enr,
		Coursework: cw,
		Log:        logger,
	}
}
