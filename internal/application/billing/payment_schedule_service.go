package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/project"
	"github.com/termin/backend/internal/domain/shared"
)

// PaymentScheduleService manages a quotation's termin pembayaran: the
// percentage-based payment milestone schedule and its invoicing.
type PaymentScheduleService struct {
	quotationRepo        billing.QuotationRepository
	milestoneRepo        billing.PaymentMilestoneRepository
	invoiceRepo          billing.InvoiceRepository
	projectMilestoneRepo project.MilestoneRepository
}

// NewPaymentScheduleService creates a new PaymentScheduleService
func NewPaymentScheduleService(
	quotationRepo billing.QuotationRepository,
	milestoneRepo billing.PaymentMilestoneRepository,
	invoiceRepo billing.InvoiceRepository,
	projectMilestoneRepo project.MilestoneRepository,
) *PaymentScheduleService {
	return &PaymentScheduleService{
		quotationRepo:        quotationRepo,
		milestoneRepo:        milestoneRepo,
		invoiceRepo:          invoiceRepo,
		projectMilestoneRepo: projectMilestoneRepo,
	}
}

// ===================== Requests and responses =====================

// AddMilestoneRequest represents a request to add a payment milestone
type AddMilestoneRequest struct {
	MilestoneNumber    int             `json:"milestone_number" binding:"required,min=1"`
	Name               string          `json:"name" binding:"required"`
	NameID             string          `json:"name_id"`
	Percentage         decimal.Decimal `json:"percentage" binding:"required,percentage"`
	DueDate            *time.Time      `json:"due_date"`
	DueOffsetDays      *int            `json:"due_offset_days"`
	Deliverables       []string        `json:"deliverables"`
	ProjectMilestoneID *uuid.UUID      `json:"project_milestone_id"`
	Remark             string          `json:"remark"`
	CreatedBy          *uuid.UUID      `json:"-"` // set from JWT context, not from request body
}

// UpdateMilestoneRequest represents a partial update to a payment milestone
type UpdateMilestoneRequest struct {
	Name          *string          `json:"name"`
	NameID        *string          `json:"name_id"`
	Percentage    *decimal.Decimal `json:"percentage"`
	DueDate       *time.Time       `json:"due_date"`
	DueOffsetDays *int             `json:"due_offset_days"`
	Deliverables  *[]string        `json:"deliverables"`
	Remark        *string          `json:"remark"`
}

// MilestoneResponse represents a payment milestone in API responses
type MilestoneResponse struct {
	ID                 uuid.UUID       `json:"id"`
	QuotationID        uuid.UUID       `json:"quotation_id"`
	MilestoneNumber    int             `json:"milestone_number"`
	Name               string          `json:"name"`
	NameID             string          `json:"name_id,omitempty"`
	Percentage         decimal.Decimal `json:"percentage"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            *time.Time      `json:"due_date,omitempty"`
	DueOffsetDays      *int            `json:"due_offset_days,omitempty"`
	Deliverables       []string        `json:"deliverables"`
	ProjectMilestoneID *uuid.UUID      `json:"project_milestone_id,omitempty"`
	InvoiceID          *uuid.UUID      `json:"invoice_id,omitempty"`
	Remark             string          `json:"remark,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Version            int             `json:"version"`
}

// ScheduleValidationResponse reports whether a quotation's schedule is complete
type ScheduleValidationResponse struct {
	Valid           bool            `json:"valid"`
	MilestoneCount  int             `json:"milestone_count"`
	TotalPercentage decimal.Decimal `json:"total_percentage"`
}

// MilestoneProgressItem is the per-milestone line of a progress report
type MilestoneProgressItem struct {
	MilestoneNumber int             `json:"milestone_number"`
	Name            string          `json:"name"`
	Percentage      decimal.Decimal `json:"percentage"`
	Amount          decimal.Decimal `json:"amount"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	Invoiced        bool            `json:"invoiced"`
	InvoiceID       *uuid.UUID      `json:"invoice_id,omitempty"`
}

// ScheduleProgressResponse summarizes invoicing progress for a quotation
type ScheduleProgressResponse struct {
	QuotationID        uuid.UUID               `json:"quotation_id"`
	MilestoneCount     int                     `json:"milestone_count"`
	InvoicedCount      int                     `json:"invoiced_count"`
	InvoicedPercentage int                     `json:"invoiced_percentage"`
	TotalAmount        decimal.Decimal         `json:"total_amount"`
	InvoicedAmount     decimal.Decimal         `json:"invoiced_amount"`
	OutstandingAmount  decimal.Decimal         `json:"outstanding_amount"`
	Milestones         []MilestoneProgressItem `json:"milestones"`
}

// InvoiceResponse represents a generated invoice in API responses
type InvoiceResponse struct {
	ID                 uuid.UUID       `json:"id"`
	InvoiceNumber      string          `json:"invoice_number"`
	QuotationID        uuid.UUID       `json:"quotation_id"`
	ProjectID          *uuid.UUID      `json:"project_id,omitempty"`
	PaymentMilestoneID *uuid.UUID      `json:"payment_milestone_id,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            time.Time       `json:"due_date"`
	MateraiRequired    bool            `json:"materai_required"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ===================== Operations =====================

// AddMilestone appends a milestone to a quotation's payment schedule.
// The milestone amount is computed from the quotation total and the
// percentage; the schedule's percentage sum may never exceed 100.
func (s *PaymentScheduleService) AddMilestone(ctx context.Context, quotationID uuid.UUID, req AddMilestoneRequest) (*MilestoneResponse, error) {
	quotation, err := s.quotationRepo.FindByID(ctx, quotationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Quotation not found")
		}
		return nil, err
	}

	existing, err := s.milestoneRepo.FindByQuotationAndNumber(ctx, quotationID, req.MilestoneNumber)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Milestone number already used for this quotation")
	}

	schedule, err := s.milestoneRepo.FindByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if err := checkPercentageBudget(schedule, uuid.Nil, req.Percentage); err != nil {
		return nil, err
	}

	milestone, err := billing.NewPaymentMilestone(quotationID, req.MilestoneNumber, req.Name, req.NameID, req.Percentage, quotation.GetTotalMoney())
	if err != nil {
		return nil, err
	}

	if req.DueDate != nil {
		if err := milestone.SetDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	} else if req.DueOffsetDays != nil {
		if err := milestone.SetDueOffset(*req.DueOffsetDays); err != nil {
			return nil, err
		}
	}
	if len(req.Deliverables) > 0 {
		milestone.Deliverables = req.Deliverables
	}
	if req.Remark != "" {
		milestone.Remark = req.Remark
	}
	if req.ProjectMilestoneID != nil {
		if err := s.validateProjectMilestoneLink(ctx, quotation, *req.ProjectMilestoneID); err != nil {
			return nil, err
		}
		if err := milestone.LinkProjectMilestone(*req.ProjectMilestoneID); err != nil {
			return nil, err
		}
	}
	if req.CreatedBy != nil {
		milestone.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.milestoneRepo.SaveWithScheduleGuard(ctx, milestone); err != nil {
		return nil, err
	}

	return toMilestoneResponse(milestone), nil
}

// UpdateMilestone patches a milestone. A percentage change revalidates
// against the rest of the schedule; the amount is always recomputed from
// the quotation's current total.
func (s *PaymentScheduleService) UpdateMilestone(ctx context.Context, id uuid.UUID, req UpdateMilestoneRequest) (*MilestoneResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Payment milestone not found")
		}
		return nil, err
	}
	if milestone.IsInvoiced() {
		return nil, shared.NewDomainError("CONFLICT", "Milestone already has an invoice and cannot be modified")
	}

	quotation, err := s.quotationRepo.FindByID(ctx, milestone.QuotationID)
	if err != nil {
		return nil, err
	}

	if req.Percentage != nil {
		schedule, err := s.milestoneRepo.FindByQuotation(ctx, milestone.QuotationID)
		if err != nil {
			return nil, err
		}
		if err := checkPercentageBudget(schedule, milestone.ID, *req.Percentage); err != nil {
			return nil, err
		}
		if err := milestone.ChangePercentage(*req.Percentage, quotation.GetTotalMoney()); err != nil {
			return nil, err
		}
	} else {
		milestone.RecomputeAmount(quotation.GetTotalMoney())
	}

	if req.Name != nil {
		milestone.Name = *req.Name
	}
	if req.NameID != nil {
		milestone.NameID = *req.NameID
	}
	if req.DueDate != nil {
		if err := milestone.SetDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	} else if req.DueOffsetDays != nil {
		if err := milestone.SetDueOffset(*req.DueOffsetDays); err != nil {
			return nil, err
		}
	}
	if req.Deliverables != nil {
		milestone.Deliverables = *req.Deliverables
	}
	if req.Remark != nil {
		milestone.Remark = *req.Remark
	}

	if err := s.milestoneRepo.SaveWithScheduleGuard(ctx, milestone); err != nil {
		return nil, err
	}

	return toMilestoneResponse(milestone), nil
}

// GetMilestone returns one payment milestone
func (s *PaymentScheduleService) GetMilestone(ctx context.Context, id uuid.UUID) (*MilestoneResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Payment milestone not found")
		}
		return nil, err
	}
	return toMilestoneResponse(milestone), nil
}

// ListMilestones returns the quotation's schedule ordered by milestone number
func (s *PaymentScheduleService) ListMilestones(ctx context.Context, quotationID uuid.UUID) ([]MilestoneResponse, error) {
	if _, err := s.quotationRepo.FindByID(ctx, quotationID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Quotation not found")
		}
		return nil, err
	}
	schedule, err := s.milestoneRepo.FindByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	responses := make([]MilestoneResponse, len(schedule))
	for i := range schedule {
		responses[i] = *toMilestoneResponse(&schedule[i])
	}
	return responses, nil
}

// RemoveMilestone deletes a milestone from the schedule. Milestones with
// a generated invoice cannot be removed.
func (s *PaymentScheduleService) RemoveMilestone(ctx context.Context, id uuid.UUID) error {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Payment milestone not found")
		}
		return err
	}
	if !milestone.CanDelete() {
		return shared.NewDomainError("CONFLICT", "Milestone already has an invoice and cannot be deleted")
	}
	return s.milestoneRepo.Delete(ctx, id)
}

// ValidateSchedule reports whether the quotation's schedule is complete:
// at least one milestone and percentages summing to exactly 100.
func (s *PaymentScheduleService) ValidateSchedule(ctx context.Context, quotationID uuid.UUID) (*ScheduleValidationResponse, error) {
	if _, err := s.quotationRepo.FindByID(ctx, quotationID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Quotation not found")
		}
		return nil, err
	}

	schedule, err := s.milestoneRepo.FindByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for i := range schedule {
		total = total.Add(schedule[i].Percentage)
	}

	return &ScheduleValidationResponse{
		Valid:           len(schedule) > 0 && total.Equal(billing.MaxSchedulePercentage),
		MilestoneCount:  len(schedule),
		TotalPercentage: total,
	}, nil
}

// RecalculateAmounts recomputes every milestone amount from its stored
// percentage against the quotation's current total. Percentages are
// untouched. When the schedule totals exactly 100 percent, the rounding
// residual is assigned to the highest-numbered milestone so the amounts
// reconcile with the quotation total.
func (s *PaymentScheduleService) RecalculateAmounts(ctx context.Context, quotationID uuid.UUID) ([]MilestoneResponse, error) {
	quotation, err := s.quotationRepo.FindByID(ctx, quotationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Quotation not found")
		}
		return nil, err
	}

	schedule, err := s.milestoneRepo.FindByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if len(schedule) == 0 {
		return []MilestoneResponse{}, nil
	}

	totalPct := decimal.Zero
	amountSum := decimal.Zero
	lastIdx := 0
	for i := range schedule {
		schedule[i].RecomputeAmount(quotation.GetTotalMoney())
		totalPct = totalPct.Add(schedule[i].Percentage)
		amountSum = amountSum.Add(schedule[i].Amount)
		if schedule[i].MilestoneNumber > schedule[lastIdx].MilestoneNumber {
			lastIdx = i
		}
	}
	if totalPct.Equal(billing.MaxSchedulePercentage) {
		residual := quotation.TotalAmount.Sub(amountSum)
		if !residual.IsZero() {
			schedule[lastIdx].Amount = schedule[lastIdx].Amount.Add(residual)
		}
	}

	if err := s.milestoneRepo.SaveAll(ctx, schedule); err != nil {
		return nil, err
	}

	responses := make([]MilestoneResponse, len(schedule))
	for i := range schedule {
		responses[i] = *toMilestoneResponse(&schedule[i])
	}
	return responses, nil
}

// GenerateInvoice creates exactly one invoice for a milestone and stamps
// the invoice id back onto it, in a single transaction. A second call
// for the same milestone fails with a conflict.
func (s *PaymentScheduleService) GenerateInvoice(ctx context.Context, milestoneID, actorID uuid.UUID) (*InvoiceResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, milestoneID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Payment milestone not found")
		}
		return nil, err
	}
	if milestone.IsInvoiced() {
		return nil, shared.NewDomainError("CONFLICT", "Milestone already has an invoice")
	}

	quotation, err := s.quotationRepo.FindByID(ctx, milestone.QuotationID)
	if err != nil {
		return nil, err
	}

	var previous *billing.PaymentMilestone
	if milestone.MilestoneNumber > 1 {
		previous, err = s.milestoneRepo.FindByQuotationAndNumber(ctx, milestone.QuotationID, milestone.MilestoneNumber-1)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	dueDate := milestone.ResolveDueDate(previous, time.Now())

	invoice, err := billing.NewInvoice(quotation.ID, quotation.ClientID, milestone.GetAmountMoney(), dueDate, actorID)
	if err != nil {
		return nil, err
	}
	invoice.ForMilestone(milestone.ID, quotation.ProjectID)

	if err := milestone.AttachInvoice(invoice.ID); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.IssueForMilestone(ctx, invoice, milestone); err != nil {
		return nil, err
	}

	return &InvoiceResponse{
		ID:                 invoice.ID,
		InvoiceNumber:      invoice.InvoiceNumber,
		QuotationID:        invoice.QuotationID,
		ProjectID:          invoice.ProjectID,
		PaymentMilestoneID: invoice.PaymentMilestoneID,
		Amount:             invoice.Amount,
		DueDate:            invoice.DueDate,
		MateraiRequired:    invoice.MateraiRequired,
		Status:             string(invoice.Status),
		CreatedAt:          invoice.CreatedAt,
	}, nil
}

// GetProgress summarizes invoicing progress for a quotation's schedule
func (s *PaymentScheduleService) GetProgress(ctx context.Context, quotationID uuid.UUID) (*ScheduleProgressResponse, error) {
	if _, err := s.quotationRepo.FindByID(ctx, quotationID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Quotation not found")
		}
		return nil, err
	}

	schedule, err := s.milestoneRepo.FindByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}

	progress := &ScheduleProgressResponse{
		QuotationID:       quotationID,
		MilestoneCount:    len(schedule),
		TotalAmount:       decimal.Zero,
		InvoicedAmount:    decimal.Zero,
		OutstandingAmount: decimal.Zero,
		Milestones:        make([]MilestoneProgressItem, 0, len(schedule)),
	}

	for i := range schedule {
		m := &schedule[i]
		progress.TotalAmount = progress.TotalAmount.Add(m.Amount)
		if m.IsInvoiced() {
			progress.InvoicedCount++
			progress.InvoicedAmount = progress.InvoicedAmount.Add(m.Amount)
		}
		progress.Milestones = append(progress.Milestones, MilestoneProgressItem{
			MilestoneNumber: m.MilestoneNumber,
			Name:            m.Name,
			Percentage:      m.Percentage,
			Amount:          m.Amount,
			DueDate:         m.DueDate,
			Invoiced:        m.IsInvoiced(),
			InvoiceID:       m.InvoiceID,
		})
	}

	progress.OutstandingAmount = progress.TotalAmount.Sub(progress.InvoicedAmount)
	if len(schedule) > 0 {
		pct := decimal.NewFromInt(int64(progress.InvoicedCount)).
			Div(decimal.NewFromInt(int64(len(schedule)))).
			Mul(decimal.NewFromInt(100))
		progress.InvoicedPercentage = int(pct.Round(0).IntPart())
	}

	return progress, nil
}

// LinkToProjectMilestone ties a payment tranche to a delivery milestone,
// connecting the payment schedule to the delivery schedule.
func (s *PaymentScheduleService) LinkToProjectMilestone(ctx context.Context, milestoneID, projectMilestoneID uuid.UUID) (*MilestoneResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, milestoneID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Payment milestone not found")
		}
		return nil, err
	}

	quotation, err := s.quotationRepo.FindByID(ctx, milestone.QuotationID)
	if err != nil {
		return nil, err
	}

	if err := s.validateProjectMilestoneLink(ctx, quotation, projectMilestoneID); err != nil {
		return nil, err
	}
	if err := milestone.LinkProjectMilestone(projectMilestoneID); err != nil {
		return nil, err
	}

	if err := s.milestoneRepo.Save(ctx, milestone); err != nil {
		return nil, err
	}
	return toMilestoneResponse(milestone), nil
}

func (s *PaymentScheduleService) validateProjectMilestoneLink(ctx context.Context, quotation *billing.Quotation, projectMilestoneID uuid.UUID) error {
	pm, err := s.projectMilestoneRepo.FindByID(ctx, projectMilestoneID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Project milestone not found")
		}
		return err
	}
	if quotation.ProjectID != nil && pm.ProjectID != *quotation.ProjectID {
		return shared.NewDomainError("INVALID_INPUT", "Project milestone belongs to a different project")
	}
	return nil
}

// checkPercentageBudget validates that the schedule's percentage sum
// stays within 100 when the given milestone takes the candidate value.
// excludeID skips the milestone being updated.
func checkPercentageBudget(schedule []billing.PaymentMilestone, excludeID uuid.UUID, candidate decimal.Decimal) error {
	sum := candidate
	for i := range schedule {
		if schedule[i].ID == excludeID {
			continue
		}
		sum = sum.Add(schedule[i].Percentage)
	}
	if sum.GreaterThan(billing.MaxSchedulePercentage) {
		return shared.NewDomainError("INVALID_INPUT", "Total milestone percentage cannot exceed 100")
	}
	return nil
}

func toMilestoneResponse(m *billing.PaymentMilestone) *MilestoneResponse {
	return &MilestoneResponse{
		ID:                 m.ID,
		QuotationID:        m.QuotationID,
		MilestoneNumber:    m.MilestoneNumber,
		Name:               m.Name,
		NameID:             m.NameID,
		Percentage:         m.Percentage,
		Amount:             m.Amount,
		DueDate:            m.DueDate,
		DueOffsetDays:      m.DueOffsetDays,
		Deliverables:       m.Deliverables,
		ProjectMilestoneID: m.ProjectMilestoneID,
		InvoiceID:          m.InvoiceID,
		Remark:             m.Remark,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		Version:            m.Version,
	}
}
