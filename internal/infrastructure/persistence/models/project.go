package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/project"
)

// ProjectModel is the persistence model for projects
type ProjectModel struct {
	AggregateModel
	ProjectNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name            string          `gorm:"type:varchar(255);not null"`
	ClientID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	EstimatedBudget decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	StartDate       *time.Time      ``
	EndDate         *time.Time      ``
	Status          string          `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for ProjectModel
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the model to a domain Project
func (m *ProjectModel) ToDomain() *project.Project {
	p := &project.Project{
		ProjectNumber:   m.ProjectNumber,
		Name:            m.Name,
		ClientID:        m.ClientID,
		EstimatedBudget: m.EstimatedBudget,
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		Status:          project.ProjectStatus(m.Status),
	}
	m.PopulateAggregateRoot(&p.BaseAggregateRoot)
	return p
}

// FromDomainProject converts a domain Project to the persistence model
func FromDomainProject(p *project.Project) *ProjectModel {
	m := &ProjectModel{
		ProjectNumber:   p.ProjectNumber,
		Name:            p.Name,
		ClientID:        p.ClientID,
		EstimatedBudget: p.EstimatedBudget,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Status:          string(p.Status),
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// ProjectMilestoneModel is the persistence model for project milestones
type ProjectMilestoneModel struct {
	AggregateModel
	ProjectID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_project_milestones_project_number,priority:1"`
	MilestoneNumber   int             `gorm:"not null;uniqueIndex:idx_project_milestones_project_number,priority:2"`
	Name              string          `gorm:"type:varchar(255);not null"`
	Description       string          `gorm:"type:text"`
	PlannedStartDate  time.Time       `gorm:"not null"`
	PlannedEndDate    time.Time       `gorm:"not null;index"`
	ActualStartDate   *time.Time      ``
	ActualEndDate     *time.Time      ``
	PlannedRevenue    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	RecognizedRevenue decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	EstimatedCost     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ActualCost        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Priority          string          `gorm:"type:varchar(20);not null"`
	CompletionPct     int             `gorm:"not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
	PredecessorID     *uuid.UUID      `gorm:"type:uuid;index"`
	DelayDays         int             `gorm:"not null;default:0"`
	DelayReason       string          `gorm:"type:text"`
	AcceptanceNote    string          `gorm:"type:text"`
	AcceptedAt        *time.Time      ``
	AcceptedBy        *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for ProjectMilestoneModel
func (ProjectMilestoneModel) TableName() string {
	return "project_milestones"
}

// ToDomain converts the model to a domain Milestone
func (m *ProjectMilestoneModel) ToDomain() *project.Milestone {
	ms := &project.Milestone{
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
		EstimatedCost:     m.EstimatedCost,
		ActualCost:        m.ActualCost,
		Priority:          project.MilestonePriority(m.Priority),
		CompletionPct:     m.CompletionPct,
		Status:            project.MilestoneStatus(m.Status),
		PredecessorID:     m.PredecessorID,
		DelayDays:         m.DelayDays,
		DelayReason:       m.DelayReason,
		AcceptanceNote:    m.AcceptanceNote,
		AcceptedAt:        m.AcceptedAt,
		AcceptedBy:        m.AcceptedBy,
	}
	m.PopulateAggregateRoot(&ms.BaseAggregateRoot)
	return ms
}

// FromDomainMilestone converts a domain Milestone to the persistence model
func FromDomainMilestone(ms *project.Milestone) *ProjectMilestoneModel {
	m := &ProjectMilestoneModel{
		ProjectID:         ms.ProjectID,
		MilestoneNumber:   ms.MilestoneNumber,
		Name:              ms.Name,
		Description:       ms.Description,
		PlannedStartDate:  ms.PlannedStartDate,
		PlannedEndDate:    ms.PlannedEndDate,
		ActualStartDate:   ms.ActualStartDate,
		ActualEndDate:     ms.ActualEndDate,
		PlannedRevenue:    ms.PlannedRevenue,
		RecognizedRevenue: ms.RecognizedRevenue,
		EstimatedCost:     ms.EstimatedCost,
		ActualCost:        ms.ActualCost,
		Priority:          string(ms.Priority),
		CompletionPct:     ms.CompletionPct,
		Status:            ms.Status.String(),
		PredecessorID:     ms.PredecessorID,
		DelayDays:         ms.DelayDays,
		DelayReason:       ms.DelayReason,
		AcceptanceNote:    ms.AcceptanceNote,
		AcceptedAt:        ms.AcceptedAt,
		AcceptedBy:        ms.AcceptedBy,
	}
	m.FromDomainAggregateRoot(ms.BaseAggregateRoot)
	return m
}
