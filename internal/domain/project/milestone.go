package project

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// MilestoneStatus represents the status of a project milestone.
// Lifecycle: PENDING -> IN_PROGRESS -> COMPLETED -> ACCEPTED/BILLED.
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "PENDING"
	MilestoneStatusInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneStatusCompleted  MilestoneStatus = "COMPLETED"
	MilestoneStatusAccepted   MilestoneStatus = "ACCEPTED"
	MilestoneStatusBilled     MilestoneStatus = "BILLED"
)

// IsValid checks if the status is a valid MilestoneStatus
func (s MilestoneStatus) IsValid() bool {
	switch s {
	case MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusCompleted,
		MilestoneStatusAccepted, MilestoneStatusBilled:
		return true
	}
	return false
}

// String returns the string representation of MilestoneStatus
func (s MilestoneStatus) String() string {
	return string(s)
}

// IsDone returns true once delivery of the milestone has finished
func (s MilestoneStatus) IsDone() bool {
	return s == MilestoneStatusCompleted || s == MilestoneStatusAccepted || s == MilestoneStatusBilled
}

// UnblocksSuccessors returns true if a successor milestone may start
// while its predecessor is in this status.
func (s MilestoneStatus) UnblocksSuccessors() bool {
	return s == MilestoneStatusCompleted || s == MilestoneStatusAccepted || s == MilestoneStatusBilled
}

// AllowsSuccessorCompletion returns true if a successor milestone may be
// marked completed while its predecessor is in this status.
func (s MilestoneStatus) AllowsSuccessorCompletion() bool {
	return s == MilestoneStatusCompleted || s == MilestoneStatusAccepted
}

// MilestonePriority represents the priority of a milestone
type MilestonePriority string

const (
	MilestonePriorityLow      MilestonePriority = "LOW"
	MilestonePriorityMedium   MilestonePriority = "MEDIUM"
	MilestonePriorityHigh     MilestonePriority = "HIGH"
	MilestonePriorityCritical MilestonePriority = "CRITICAL"
)

// IsValid checks if the priority is valid
func (p MilestonePriority) IsValid() bool {
	switch p {
	case MilestonePriorityLow, MilestonePriorityMedium, MilestonePriorityHigh, MilestonePriorityCritical:
		return true
	}
	return false
}

// Milestone represents a project delivery milestone aggregate root.
// Milestones of one project form a forest through PredecessorID; the
// predecessor is an id reference, never a pointer, and cycle checks run
// iteratively over the id chain.
type Milestone struct {
	shared.BaseAggregateRoot
	ProjectID         uuid.UUID         `json:"project_id"`
	MilestoneNumber   int               `json:"milestone_number"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	PlannedStartDate  time.Time         `json:"planned_start_date"`
	PlannedEndDate    time.Time         `json:"planned_end_date"`
	ActualStartDate   *time.Time        `json:"actual_start_date,omitempty"`
	ActualEndDate     *time.Time        `json:"actual_end_date,omitempty"`
	PlannedRevenue    decimal.Decimal   `json:"planned_revenue"`
	RecognizedRevenue decimal.Decimal   `json:"recognized_revenue"`
	EstimatedCost     decimal.Decimal   `json:"estimated_cost"`
	ActualCost        decimal.Decimal   `json:"actual_cost"`
	Priority          MilestonePriority `json:"priority"`
	CompletionPct     int               `json:"completion_pct"`
	Status            MilestoneStatus   `json:"status"`
	PredecessorID     *uuid.UUID        `json:"predecessor_id,omitempty"`
	DelayDays         int               `json:"delay_days"`
	DelayReason       string            `json:"delay_reason,omitempty"`
	AcceptanceNote    string            `json:"acceptance_note,omitempty"`
	AcceptedAt        *time.Time        `json:"accepted_at,omitempty"`
	AcceptedBy        *uuid.UUID        `json:"accepted_by,omitempty"`
}

// NewMilestone creates a new project milestone in PENDING state
func NewMilestone(projectID uuid.UUID, milestoneNumber int, name string, plannedStart, plannedEnd time.Time, plannedRevenue, estimatedCost valueobject.Money, priority MilestonePriority) (*Milestone, error) {
	if milestoneNumber < 1 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Milestone number must be at least 1")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Milestone name is required")
	}
	if !plannedEnd.After(plannedStart) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Planned end date must be after planned start date")
	}
	if plannedRevenue.IsNegative() || estimatedCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Revenue and cost cannot be negative")
	}
	if priority == "" {
		priority = MilestonePriorityMedium
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid milestone priority")
	}

	return &Milestone{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectID:         projectID,
		MilestoneNumber:   milestoneNumber,
		Name:              name,
		PlannedStartDate:  plannedStart,
		PlannedEndDate:    plannedEnd,
		PlannedRevenue:    plannedRevenue.Amount(),
		RecognizedRevenue: decimal.Zero,
		EstimatedCost:     estimatedCost.Amount(),
		ActualCost:        decimal.Zero,
		Priority:          priority,
		CompletionPct:     0,
		Status:            MilestoneStatusPending,
	}, nil
}

// RemainingRevenue returns planned minus recognized revenue
func (m *Milestone) RemainingRevenue() decimal.Decimal {
	return m.PlannedRevenue.Sub(m.RecognizedRevenue)
}

// Reschedule changes the planned window, keeping end after start
func (m *Milestone) Reschedule(plannedStart, plannedEnd time.Time) error {
	if !plannedEnd.After(plannedStart) {
		return shared.NewDomainError("INVALID_INPUT", "Planned end date must be after planned start date")
	}
	m.PlannedStartDate = plannedStart
	m.PlannedEndDate = plannedEnd
	return nil
}

// SetPredecessor assigns the predecessor reference. Same-project and
// acyclicity checks run in the application service, which can see the
// rest of the graph.
func (m *Milestone) SetPredecessor(predecessorID *uuid.UUID) error {
	if predecessorID != nil && *predecessorID == m.ID {
		return shared.NewDomainError("INVALID_INPUT", "Milestone cannot be its own predecessor")
	}
	m.PredecessorID = predecessorID
	return nil
}

// RecordActualEnd stamps the actual end date and recomputes the delay
// as whole days past the planned end, never negative.
func (m *Milestone) RecordActualEnd(actualEnd time.Time) {
	m.ActualEndDate = &actualEnd
	m.DelayDays = delayDays(m.PlannedEndDate, actualEnd)
}

func delayDays(plannedEnd, actualEnd time.Time) int {
	d := int(actualEnd.Sub(plannedEnd).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// ApplyProgress updates the completion percentage and derives status and
// actual dates: 0 is PENDING, 100 is COMPLETED, anything between is
// IN_PROGRESS. The actual start date is stamped once progress rises
// above zero; the actual end date exists only at 100.
func (m *Milestone) ApplyProgress(percentage int, now time.Time) error {
	if percentage < 0 || percentage > 100 {
		return shared.NewDomainError("INVALID_INPUT", "Completion percentage must be between 0 and 100")
	}

	m.CompletionPct = percentage

	switch {
	case percentage == 0:
		m.Status = MilestoneStatusPending
		m.ActualEndDate = nil
		m.DelayDays = 0
	case percentage == 100:
		m.Status = MilestoneStatusCompleted
		if m.ActualStartDate == nil {
			m.ActualStartDate = &now
		}
		m.RecordActualEnd(now)
		m.RecognizedRevenue = m.PlannedRevenue
	default:
		m.Status = MilestoneStatusInProgress
		if m.ActualStartDate == nil {
			m.ActualStartDate = &now
		}
		m.ActualEndDate = nil
		m.DelayDays = 0
	}
	return nil
}

// Complete marks the milestone as COMPLETED at the given time and
// recognizes its planned revenue. Predecessor gating is enforced by the
// caller, which knows the predecessor's status.
func (m *Milestone) Complete(now time.Time) error {
	if m.Status.IsDone() {
		return shared.NewDomainError("INVALID_STATE", "Milestone is already completed")
	}
	m.Status = MilestoneStatusCompleted
	m.CompletionPct = 100
	if m.ActualStartDate == nil {
		m.ActualStartDate = &now
	}
	m.RecordActualEnd(now)
	m.RecognizedRevenue = m.PlannedRevenue
	return nil
}

// Accept records client acceptance of a completed milestone
func (m *Milestone) Accept(acceptedBy uuid.UUID, note string, now time.Time) error {
	if m.Status != MilestoneStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Only completed milestones can be accepted")
	}
	m.Status = MilestoneStatusAccepted
	m.AcceptanceNote = note
	m.AcceptedAt = &now
	m.AcceptedBy = &acceptedBy
	return nil
}

// MarkBilled transitions an accepted or completed milestone to BILLED,
// the terminal state for payment purposes.
func (m *Milestone) MarkBilled() error {
	if m.Status != MilestoneStatusCompleted && m.Status != MilestoneStatusAccepted {
		return shared.NewDomainError("INVALID_STATE", "Only completed or accepted milestones can be billed")
	}
	m.Status = MilestoneStatusBilled
	return nil
}

// RecordDelay attaches a delay reason to the milestone
func (m *Milestone) RecordDelay(reason string) {
	m.DelayReason = reason
}

// RecordActualCost sets the actual cost incurred for the milestone
func (m *Milestone) RecordActualCost(cost valueobject.Money) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Actual cost cannot be negative")
	}
	m.ActualCost = cost.Amount()
	return nil
}
