package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	applicationbilling "github.com/termin/backend/internal/application/billing"
)

// PaymentMilestoneHandler exposes the payment schedule operations
type PaymentMilestoneHandler struct {
	BaseHandler
	service *applicationbilling.PaymentScheduleService
}

// NewPaymentMilestoneHandler creates a new PaymentMilestoneHandler
func NewPaymentMilestoneHandler(service *applicationbilling.PaymentScheduleService) *PaymentMilestoneHandler {
	return &PaymentMilestoneHandler{service: service}
}

// RegisterRoutes registers the payment schedule routes
func (h *PaymentMilestoneHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotations := rg.Group("/quotations/:id/milestones")
	{
		quotations.POST("", h.AddMilestone)
		quotations.GET("", h.ListMilestones)
		quotations.GET("/validate", h.ValidateSchedule)
		quotations.POST("/recalculate", h.RecalculateAmounts)
		quotations.GET("/progress", h.GetProgress)
	}

	milestones := rg.Group("/payment-milestones/:id")
	{
		milestones.GET("", h.GetMilestone)
		milestones.PUT("", h.UpdateMilestone)
		milestones.DELETE("", h.RemoveMilestone)
		milestones.POST("/invoice", h.GenerateInvoice)
		milestones.POST("/link", h.LinkToProjectMilestone)
	}
}

// AddMilestone handles POST /quotations/:id/milestones
func (h *PaymentMilestoneHandler) AddMilestone(c *gin.Context) {
	quotationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid quotation ID")
		return
	}

	var req applicationbilling.AddMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if userID, err := getUserID(c); err == nil {
		req.CreatedBy = &userID
	}

	milestone, err := h.service.AddMilestone(c.Request.Context(), quotationID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, milestone)
}

// ListMilestones handles GET /quotations/:id/milestones
func (h *PaymentMilestoneHandler) ListMilestones(c *gin.Context) {
	quotationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid quotation ID")
		return
	}

	milestones, err := h.service.ListMilestones(c.Request.Context(), quotationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestones)
}

// ValidateSchedule handles GET /quotations/:id/milestones/validate
func (h *PaymentMilestoneHandler) ValidateSchedule(c *gin.Context) {
	quotationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid quotation ID")
		return
	}

	result, err := h.service.ValidateSchedule(c.Request.Context(), quotationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RecalculateAmounts handles POST /quotations/:id/milestones/recalculate
func (h *PaymentMilestoneHandler) RecalculateAmounts(c *gin.Context) {
	quotationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid quotation ID")
		return
	}

	milestones, err := h.service.RecalculateAmounts(c.Request.Context(), quotationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestones)
}

// GetProgress handles GET /quotations/:id/milestones/progress
func (h *PaymentMilestoneHandler) GetProgress(c *gin.Context) {
	quotationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid quotation ID")
		return
	}

	progress, err := h.service.GetProgress(c.Request.Context(), quotationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, progress)
}

// GetMilestone handles GET /payment-milestones/:id
func (h *PaymentMilestoneHandler) GetMilestone(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	milestone, err := h.service.GetMilestone(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestone)
}

// UpdateMilestone handles PUT /payment-milestones/:id
func (h *PaymentMilestoneHandler) UpdateMilestone(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	var req applicationbilling.UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	milestone, err := h.service.UpdateMilestone(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestone)
}

// RemoveMilestone handles DELETE /payment-milestones/:id
func (h *PaymentMilestoneHandler) RemoveMilestone(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	if err := h.service.RemoveMilestone(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GenerateInvoice handles POST /payment-milestones/:id/invoice
func (h *PaymentMilestoneHandler) GenerateInvoice(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Acting user could not be resolved")
		return
	}

	invoice, err := h.service.GenerateInvoice(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// linkRequest is the body for LinkToProjectMilestone
type linkRequest struct {
	ProjectMilestoneID uuid.UUID `json:"project_milestone_id" binding:"required"`
}

// LinkToProjectMilestone handles POST /payment-milestones/:id/link
func (h *PaymentMilestoneHandler) LinkToProjectMilestone(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid milestone ID")
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	milestone, err := h.service.LinkToProjectMilestone(c.Request.Context(), id, req.ProjectMilestoneID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestone)
}
