package project

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for projects
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)
	Save(ctx context.Context, project *Project) error
}

// MilestoneRepository defines persistence operations for project milestones
type MilestoneRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Milestone, error)
	// FindByProject returns the project's milestones ordered by milestone number.
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]Milestone, error)
	FindByProjectAndNumber(ctx context.Context, projectID uuid.UUID, milestoneNumber int) (*Milestone, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	// CountDependents returns how many milestones reference the given
	// milestone as their predecessor.
	CountDependents(ctx context.Context, id uuid.UUID) (int64, error)
	Save(ctx context.Context, milestone *Milestone) error
	Delete(ctx context.Context, id uuid.UUID) error
}
