package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simatecve/reten-facil-sub000/internal/interfaces/http/dto"
)

// Pinger reports whether the backing database is reachable
type Pinger interface {
	Ping() error
}

// SystemHandler serves health and version endpoints
type SystemHandler struct {
	BaseHandler
	db        Pinger
	appName   string
	version   string
	startedAt time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db Pinger, appName, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		appName:   appName,
		version:   version,
		startedAt: time.Now(),
	}
}

// Health reports service liveness and database reachability
// GET /api/v1/health
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	httpStatus := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	c.JSON(httpStatus, dto.NewSuccessResponse(gin.H{
		"status":   status,
		"database": dbStatus,
		"app":      h.appName,
		"version":  h.version,
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
	}))
}
