package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/termin/backend/internal/application/analytics"
	"github.com/termin/backend/internal/domain/report"
)

// AnalyticsHandler exposes the milestone analytics report
type AnalyticsHandler struct {
	BaseHandler
	service *analytics.MilestoneAnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(service *analytics.MilestoneAnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// RegisterRoutes registers the analytics routes
func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analytics/milestones", h.GetMilestoneAnalytics)
}

// GetMilestoneAnalytics handles GET /analytics/milestones.
// Query parameters: project_id, start_date, end_date (RFC 3339 dates),
// range_days (30, 90 or 365).
func (h *AnalyticsHandler) GetMilestoneAnalytics(c *gin.Context) {
	var filter report.Filter

	if raw := c.Query("project_id"); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid project_id")
			return
		}
		filter.ProjectID = &projectID
	}
	if raw := c.Query("start_date"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "Invalid start_date, expected YYYY-MM-DD")
			return
		}
		filter.StartDate = &start
	}
	if raw := c.Query("end_date"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "Invalid end_date, expected YYYY-MM-DD")
			return
		}
		filter.EndDate = &end
	}
	if raw := c.Query("range_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "Invalid range_days")
			return
		}
		filter.RangeDays = days
	}

	reportData, err := h.service.GetAnalytics(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reportData)
}
