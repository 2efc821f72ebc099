package project

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/project"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// MilestoneService manages a project's delivery milestones as a
// predecessor-linked graph.
type MilestoneService struct {
	projectRepo   project.Repository
	milestoneRepo project.MilestoneRepository
}

// NewMilestoneService creates a new MilestoneService
func NewMilestoneService(projectRepo project.Repository, milestoneRepo project.MilestoneRepository) *MilestoneService {
	return &MilestoneService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
	}
}

// ===================== Requests and responses =====================

// CreateMilestoneRequest represents a request to create a project milestone
type CreateMilestoneRequest struct {
	MilestoneNumber  int              `json:"milestone_number" binding:"required,min=1"`
	Name             string           `json:"name" binding:"required"`
	Description      string           `json:"description"`
	PlannedStartDate time.Time        `json:"planned_start_date" binding:"required"`
	PlannedEndDate   time.Time        `json:"planned_end_date" binding:"required"`
	PlannedRevenue   *decimal.Decimal `json:"planned_revenue"`
	EstimatedCost    *decimal.Decimal `json:"estimated_cost"`
	Priority         string           `json:"priority"`
	PredecessorID    *uuid.UUID       `json:"predecessor_id"`
	CreatedBy        *uuid.UUID       `json:"-"` // set from JWT context, not from request body
}

// UpdateMilestoneRequest represents a partial update to a project milestone
type UpdateMilestoneRequest struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	PlannedStartDate *time.Time       `json:"planned_start_date"`
	PlannedEndDate   *time.Time       `json:"planned_end_date"`
	ActualEndDate    *time.Time       `json:"actual_end_date"`
	PlannedRevenue   *decimal.Decimal `json:"planned_revenue"`
	EstimatedCost    *decimal.Decimal `json:"estimated_cost"`
	ActualCost       *decimal.Decimal `json:"actual_cost"`
	Priority         *string          `json:"priority"`
	PredecessorID    *uuid.UUID       `json:"predecessor_id"`
	ClearPredecessor bool             `json:"clear_predecessor"`
	DelayReason      *string          `json:"delay_reason"`
}

// MilestoneResponse represents a project milestone in API responses
type MilestoneResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProjectID         uuid.UUID       `json:"project_id"`
	MilestoneNumber   int             `json:"milestone_number"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	PlannedStartDate  time.Time       `json:"planned_start_date"`
	PlannedEndDate    time.Time       `json:"planned_end_date"`
	ActualStartDate   *time.Time      `json:"actual_start_date,omitempty"`
	ActualEndDate     *time.Time      `json:"actual_end_date,omitempty"`
	PlannedRevenue    decimal.Decimal `json:"planned_revenue"`
	RecognizedRevenue decimal.Decimal `json:"recognized_revenue"`
	RemainingRevenue  decimal.Decimal `json:"remaining_revenue"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
	ActualCost        decimal.Decimal `json:"actual_cost"`
	Priority          string          `json:"priority"`
	CompletionPct     int             `json:"completion_pct"`
	Status            string          `json:"status"`
	PredecessorID     *uuid.UUID      `json:"predecessor_id,omitempty"`
	DelayDays         int             `json:"delay_days"`
	DelayReason       string          `json:"delay_reason,omitempty"`
	AcceptanceNote    string          `json:"acceptance_note,omitempty"`
	AcceptedAt        *time.Time      `json:"accepted_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// DependencyCheckResponse reports whether a milestone may start
type DependencyCheckResponse struct {
	CanStart          bool     `json:"can_start"`
	Reasons           []string `json:"reasons"`
	PredecessorStatus *string  `json:"predecessor_status,omitempty"`
}

// ===================== Operations =====================

// Create adds a milestone to a project. When no planned revenue is
// supplied, the project's estimated budget is divided equally across
// (existing milestone count + 1) and rounded to whole rupiah; earlier
// milestones keep their already-assigned revenue.
func (s *MilestoneService) Create(ctx context.Context, projectID uuid.UUID, req CreateMilestoneRequest) (*MilestoneResponse, error) {
	proj, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Project not found")
		}
		return nil, err
	}

	existing, err := s.milestoneRepo.FindByProjectAndNumber(ctx, projectID, req.MilestoneNumber)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Milestone number already used for this project")
	}

	if req.PredecessorID != nil {
		if _, err := s.loadPredecessor(ctx, projectID, *req.PredecessorID); err != nil {
			return nil, err
		}
	}

	revenue, err := s.resolvePlannedRevenue(ctx, proj, req.PlannedRevenue)
	if err != nil {
		return nil, err
	}

	cost := valueobject.ZeroIDR()
	if req.EstimatedCost != nil {
		cost = valueobject.NewMoneyIDR(*req.EstimatedCost)
	}

	milestone, err := project.NewMilestone(projectID, req.MilestoneNumber, req.Name,
		req.PlannedStartDate, req.PlannedEndDate, revenue, cost,
		project.MilestonePriority(req.Priority))
	if err != nil {
		return nil, err
	}
	milestone.Description = req.Description
	if req.PredecessorID != nil {
		if err := milestone.SetPredecessor(req.PredecessorID); err != nil {
			return nil, err
		}
	}
	if req.CreatedBy != nil {
		milestone.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.milestoneRepo.Save(ctx, milestone); err != nil {
		return nil, err
	}
	return toProjectMilestoneResponse(milestone), nil
}

// Get returns one project milestone
func (s *MilestoneService) Get(ctx context.Context, id uuid.UUID) (*MilestoneResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Project milestone not found")
		}
		return nil, err
	}
	return toProjectMilestoneResponse(milestone), nil
}

// List returns a project's milestones ordered by milestone number
func (s *MilestoneService) List(ctx context.Context, projectID uuid.UUID) ([]MilestoneResponse, error) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Project not found")
		}
		return nil, err
	}
	milestones, err := s.milestoneRepo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	responses := make([]MilestoneResponse, len(milestones))
	for i := range milestones {
		responses[i] = *toProjectMilestoneResponse(&milestones[i])
	}
	return responses, nil
}

// Update patches a milestone. Predecessor changes rerun same-project and
// cycle checks; date changes rerun ordering validation; an actual end
// date recomputes the delay.
func (s *MilestoneService) Update(ctx context.Context, id uuid.UUID, req UpdateMilestoneRequest) (*MilestoneResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Project milestone not found")
		}
		return nil, err
	}

	if req.ClearPredecessor {
		if err := milestone.SetPredecessor(nil); err != nil {
			return nil, err
		}
	} else if req.PredecessorID != nil {
		if _, err := s.loadPredecessor(ctx, milestone.ProjectID, *req.PredecessorID); err != nil {
			return nil, err
		}
		if err := s.checkForCycle(ctx, milestone.ID, *req.PredecessorID); err != nil {
			return nil, err
		}
		if err := milestone.SetPredecessor(req.PredecessorID); err != nil {
			return nil, err
		}
	}

	if req.PlannedStartDate != nil || req.PlannedEndDate != nil {
		start := milestone.PlannedStartDate
		end := milestone.PlannedEndDate
		if req.PlannedStartDate != nil {
			start = *req.PlannedStartDate
		}
		if req.PlannedEndDate != nil {
			end = *req.PlannedEndDate
		}
		if err := milestone.Reschedule(start, end); err != nil {
			return nil, err
		}
	}

	if req.Name != nil {
		milestone.Name = *req.Name
	}
	if req.Description != nil {
		milestone.Description = *req.Description
	}
	if req.PlannedRevenue != nil {
		if req.PlannedRevenue.IsNegative() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Planned revenue cannot be negative")
		}
		milestone.PlannedRevenue = *req.PlannedRevenue
	}
	if req.EstimatedCost != nil {
		if req.EstimatedCost.IsNegative() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Estimated cost cannot be negative")
		}
		milestone.EstimatedCost = *req.EstimatedCost
	}
	if req.ActualCost != nil {
		if err := milestone.RecordActualCost(valueobject.NewMoneyIDR(*req.ActualCost)); err != nil {
			return nil, err
		}
	}
	if req.Priority != nil {
		p := project.MilestonePriority(*req.Priority)
		if !p.IsValid() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Invalid milestone priority")
		}
		milestone.Priority = p
	}
	if req.ActualEndDate != nil {
		milestone.RecordActualEnd(*req.ActualEndDate)
	}
	if req.DelayReason != nil {
		milestone.RecordDelay(*req.DelayReason)
	}

	if err := s.milestoneRepo.Save(ctx, milestone); err != nil {
		return nil, err
	}
	return toProjectMilestoneResponse(milestone), nil
}

// Remove deletes a milestone unless another milestone depends on it
func (s *MilestoneService) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.milestoneRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Project milestone not found")
		}
		return err
	}
	dependents, err := s.milestoneRepo.CountDependents(ctx, id)
	if err != nil {
		return err
	}
	if dependents > 0 {
		return shared.NewDomainError("INVALID_INPUT", "Milestone is a predecessor of other milestones and cannot be deleted")
	}
	return s.milestoneRepo.Delete(ctx, id)
}

// UpdateProgress sets the completion percentage and derives status and
// actual dates from it.
func (s *MilestoneService) UpdateProgress(ctx context.Context, id uuid.UUID, percentage int) (*MilestoneResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Project milestone not found")
		}
		return nil, err
	}
	if err := milestone.ApplyProgress(percentage, time.Now()); err != nil {
		return nil, err
	}
	if err := s.milestoneRepo.Save(ctx, milestone); err != nil {
		return nil, err
	}
	return toProjectMilestoneResponse(milestone), nil
}

// MarkAsCompleted completes a milestone. A predecessor must already be
// completed or accepted.
func (s *MilestoneService) MarkAsCompleted(ctx context.Context, id uuid.UUID) (*MilestoneResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Project milestone not found")
		}
		return nil, err
	}

	if milestone.PredecessorID != nil {
		predecessor, err := s.milestoneRepo.FindByID(ctx, *milestone.PredecessorID)
		if err != nil {
			return nil, err
		}
		if !predecessor.Status.AllowsSuccessorCompletion() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Predecessor milestone is not yet completed")
		}
	}

	if err := milestone.Complete(time.Now()); err != nil {
		return nil, err
	}
	if err := s.milestoneRepo.Save(ctx, milestone); err != nil {
		return nil, err
	}
	return toProjectMilestoneResponse(milestone), nil
}

// CheckDependencies reports whether a milestone may start, given its
// predecessor's status.
func (s *MilestoneService) CheckDependencies(ctx context.Context, id uuid.UUID) (*DependencyCheckResponse, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Project milestone not found")
		}
		return nil, err
	}

	result := &DependencyCheckResponse{CanStart: true, Reasons: []string{}}
	if milestone.PredecessorID == nil {
		return result, nil
	}

	predecessor, err := s.milestoneRepo.FindByID(ctx, *milestone.PredecessorID)
	if err != nil {
		return nil, err
	}

	status := predecessor.Status.String()
	result.PredecessorStatus = &status
	if !predecessor.Status.UnblocksSuccessors() {
		result.CanStart = false
		result.Reasons = append(result.Reasons,
			"Predecessor milestone "+predecessor.Name+" is not yet completed")
	}
	return result, nil
}

// loadPredecessor loads and validates a predecessor candidate: it must
// exist and belong to the same project.
func (s *MilestoneService) loadPredecessor(ctx context.Context, projectID, predecessorID uuid.UUID) (*project.Milestone, error) {
	predecessor, err := s.milestoneRepo.FindByID(ctx, predecessorID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Predecessor milestone not found")
		}
		return nil, err
	}
	if predecessor.ProjectID != projectID {
		return nil, shared.NewDomainError("INVALID_INPUT", "Predecessor milestone belongs to a different project")
	}
	return predecessor, nil
}

// checkForCycle walks the predecessor chain starting at the candidate
// predecessor. Reaching the target milestone means the assignment would
// close a cycle; a revisited node stops the walk so pre-existing
// corruption cannot loop forever.
func (s *MilestoneService) checkForCycle(ctx context.Context, targetID, candidateID uuid.UUID) error {
	visited := map[uuid.UUID]bool{}
	current := &candidateID
	for current != nil {
		if *current == targetID {
			return shared.NewDomainError("INVALID_INPUT", "Predecessor assignment would create a circular dependency")
		}
		if visited[*current] {
			return nil
		}
		visited[*current] = true

		node, err := s.milestoneRepo.FindByID(ctx, *current)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		current = node.PredecessorID
	}
	return nil
}

// resolvePlannedRevenue returns the explicit revenue when supplied, or
// divides the project budget equally across existing milestones plus the
// new one, rounded to whole rupiah. The split is not retroactive.
func (s *MilestoneService) resolvePlannedRevenue(ctx context.Context, proj *project.Project, explicit *decimal.Decimal) (valueobject.Money, error) {
	if explicit != nil {
		if explicit.IsNegative() {
			return valueobject.Money{}, shared.NewDomainError("INVALID_INPUT", "Planned revenue cannot be negative")
		}
		return valueobject.NewMoneyIDR(*explicit), nil
	}

	count, err := s.milestoneRepo.CountByProject(ctx, proj.ID)
	if err != nil {
		return valueobject.Money{}, err
	}
	share := proj.EstimatedBudget.Div(decimal.NewFromInt(count + 1)).Round(0)
	return valueobject.NewMoneyIDR(share), nil
}

func toProjectMilestoneResponse(m *project.Milestone) *MilestoneResponse {
	return &MilestoneResponse{
		ID:                m.ID,
		ProjectID:         m.ProjectID,
		MilestoneNumber:   m.MilestoneNumber,
		Name:              m.Name,
		Description:       m.Description,
		PlannedStartDate:  m.PlannedStartDate,
		PlannedEndDate:    m.PlannedEndDate,
		ActualStartDate:   m.ActualStartDate,
		ActualEndDate:     m.ActualEndDate,
		PlannedRevenue:    m.PlannedRevenue,
		RecognizedRevenue: m.RecognizedRevenue,
		RemainingRevenue:  m.RemainingRevenue(),
		EstimatedCost:     m.EstimatedCost,
		ActualCost:        m.ActualCost,
		Priority:          string(m.Priority),
		CompletionPct:     m.CompletionPct,
		Status:            m.Status.String(),
		PredecessorID:     m.PredecessorID,
		DelayDays:         m.DelayDays,
		DelayReason:       m.DelayReason,
		AcceptanceNote:    m.AcceptanceNote,
		AcceptedAt:        m.AcceptedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		Version:           m.Version,
	}
}
