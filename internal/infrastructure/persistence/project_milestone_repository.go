package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/termin/backend/internal/domain/project"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProjectMilestoneRepository implements project.MilestoneRepository using GORM
type GormProjectMilestoneRepository struct {
	db *gorm.DB
}

// NewGormProjectMilestoneRepository creates a new GormProjectMilestoneRepository
func NewGormProjectMilestoneRepository(db *gorm.DB) *GormProjectMilestoneRepository {
	return &GormProjectMilestoneRepository{db: db}
}

// FindByID finds a project milestone by its ID
func (r *GormProjectMilestoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*project.Milestone, error) {
	var model models.ProjectMilestoneModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProject returns a project's milestones ordered by milestone number
func (r *GormProjectMilestoneRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]project.Milestone, error) {
	var milestoneModels []models.ProjectMilestoneModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("milestone_number ASC").
		Find(&milestoneModels).Error; err != nil {
		return nil, err
	}
	milestones := make([]project.Milestone, len(milestoneModels))
	for i, model := range milestoneModels {
		milestones[i] = *model.ToDomain()
	}
	return milestones, nil
}

// FindByProjectAndNumber finds a milestone by its ordinal within a project
func (r *GormProjectMilestoneRepository) FindByProjectAndNumber(ctx context.Context, projectID uuid.UUID, milestoneNumber int) (*project.Milestone, error) {
	var model models.ProjectMilestoneModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND milestone_number = ?", projectID, milestoneNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountByProject counts a project's milestones
func (r *GormProjectMilestoneRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProjectMilestoneModel{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountDependents counts milestones that reference the given milestone
// as their predecessor.
func (r *GormProjectMilestoneRepository) CountDependents(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProjectMilestoneModel{}).
		Where("predecessor_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a project milestone
func (r *GormProjectMilestoneRepository) Save(ctx context.Context, milestone *project.Milestone) error {
	model := models.FromDomainMilestone(milestone)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a project milestone
func (r *GormProjectMilestoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProjectMilestoneModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormProjectMilestoneRepository implements project.MilestoneRepository
var _ project.MilestoneRepository = (*GormProjectMilestoneRepository)(nil)
