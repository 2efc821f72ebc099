package handler

import (
	"github.com/gin-gonic/gin"
	applicationproject "github.com/termin/backend/internal/application/project"
)

// ProjectMilestoneHandler exposes the project milestone graph operations
type ProjectMilestoneHandler struct {
	BaseHandler
	service *applicationproject.MilestoneService
}

// NewProjectMilestoneHandler creates a new ProjectMilestoneHandler
func NewProjectMilestoneHandler(service *applicationproject.MilestoneService) *ProjectMilestoneHandler {
	return &ProjectMilestoneHandler{service: service}
}

// RegisterRoutes registers the project milestone routes
func (h *ProjectMilestoneHandler) RegisterRoutes(rg *gin.RouterGroup) {
	projects := rg.Group("/projects/:id/milestones")
	{
		projects.POST("", h.Create)
		projects.GET("", h.List)
	}

	milestones := rg.Group("/project-milestones/:id")
	{
		milestones.GET("", h.Get)
		milestones.PUT("", h.Update)
		milestones.DELETE("", h.Remove)
		milestones.PATCH("/progress", h.UpdateProgress)
		milestones.POST("/complete", h.MarkAsCompleted)
		milestones.GET("/dependencies", h.CheckDependencies)
	}
}

// Create handles POST /projects/:id/milestones
func (h *ProjectMilestoneHandler) Create(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	var req applicationproject.CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if userID, err := getUserID(c); err == nil {
		req.CreatedBy = &userID
	}

	milestone, err := h.service.Create(c.Request.Context(), projectID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, milestone)
}

// List handles GET /projects/:id/milestones
func (h *ProjectMilestoneHandler) List(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	milestones, err := h.service.List(c.Request.Context(), projectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestones)
}

// Get handles GET /project-milestones/:id
func (h *ProjectMilestoneHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	milestone, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestone)
}

// Update handles PUT /project-milestones/:id
func (h *ProjectMilestoneHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	var req applicationproject.UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	milestone, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestone)
}

// Remove handles DELETE /project-milestones/:id
func (h *ProjectMilestoneHandler) Remove(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// progressRequest is the body for UpdateProgress
type progressRequest struct {
	Percentage *int `json:"percentage" binding:"required,min=0,max=100"`
}

// UpdateProgress handles PATCH /project-milestones/:id/progress
func (h *ProjectMilestoneHandler) UpdateProgress(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	milestone, err := h.service.UpdateProgress(c.Request.Context(), id, *req.Percentage)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestone)
}

// MarkAsCompleted handles POST /project-milestones/:id/complete
func (h *ProjectMilestoneHandler) MarkAsCompleted(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	milestone, err := h.service.MarkAsCompleted(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestone)
}

// CheckDependencies handles GET /project-milestones/:id/dependencies
func (h *ProjectMilestoneHandler) CheckDependencies(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	result, err := h.service.CheckDependencies(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
