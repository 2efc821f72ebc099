package project

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// ProjectStatus represents the status of a project
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "PLANNING"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ProjectStatus
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// Project represents a client project aggregate root. Project records
// are authored by collaborators; the milestone graph reads the budget
// and date range for allocation and validation.
type Project struct {
	shared.BaseAggregateRoot
	ProjectNumber   string          `json:"project_number"`
	Name            string          `json:"name"`
	ClientID        uuid.UUID       `json:"client_id"`
	EstimatedBudget decimal.Decimal `json:"estimated_budget"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	Status          ProjectStatus   `json:"status"`
}

// NewProject creates a new project
func NewProject(projectNumber, name string, clientID uuid.UUID, estimatedBudget valueobject.Money) (*Project, error) {
	if projectNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Project number is required")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Project name is required")
	}
	if estimatedBudget.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Estimated budget cannot be negative")
	}
	return &Project{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectNumber:     projectNumber,
		Name:              name,
		ClientID:          clientID,
		EstimatedBudget:   estimatedBudget.Amount(),
		Status:            ProjectStatusPlanning,
	}, nil
}

// GetBudgetMoney returns the estimated budget as a Money value object
func (p *Project) GetBudgetMoney() valueobject.Money {
	return valueobject.NewMoneyIDR(p.EstimatedBudget)
}
