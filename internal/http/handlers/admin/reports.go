package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"csrgive.com/app/internal/http/handlers"
	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/modules/audit"
	"csrgive.com/app/internal/modules/reports"
)

type ReportsHandler struct {
	Reports *reports.Service
	Audit   *audit.Service
}

func NewReportsHandler(r *reports.Service, a *audit.Service) *ReportsHandler {
	return &ReportsHandler{Reports: r, Audit: a}
}

// GET /api/admin/reports/overview?from=&to=
// A date-only "to" includes that whole day.
func (h *ReportsHandler) Overview(c *gin.Context) {
	from, err := handlers.QueryDate(c, "from")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	to, err := handlers.QueryDate(c, "to")
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	if to != nil && len(c.Query("to")) == len(time.DateOnly) {
		end := to.AddDate(0, 0, 1)
		to = &end
	}

	ov, err := h.Reports.Overview(c.Request.Context(), reports.Range{From: from, To: to})
	if err != nil {
		middleware.Fail(c, handlers.AppError(err))
		return
	}
	c.JSON(http.StatusOK, ov)
}

// GET /api/admin/audit?entity_type=&entity_id=&limit=
func (h *ReportsHandler) AuditLog(c *gin.Context) {
	entityID := handlers.QueryInt(c, "entity_id", 0)
	if entityID < 0 {
		entityID = 0
	}
	items, err := h.Audit.List(c.Request.Context(), c.Query("entity_type"), uint(entityID), handlers.QueryInt(c, "limit", 100))
	if err != nil {
		middleware.Fail(c, handlers.AppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
