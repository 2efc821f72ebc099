package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/termin/backend/internal/domain/project"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
	"github.com/termin/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupProjectMilestoneTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.ProjectMilestoneModel{})
	require.NoError(t, err)

	return db
}

func persistedMilestone(t *testing.T, repo *GormProjectMilestoneRepository, projectID uuid.UUID, number int) *project.Milestone {
	t.Helper()
	m, err := project.NewMilestone(projectID, number, "Perancangan",
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyIDRFromInt(10_000_000), valueobject.NewMoneyIDRFromInt(4_000_000),
		project.MilestonePriorityMedium)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), m))
	return m
}

func TestGormProjectMilestoneRepository_SaveAndFindByID(t *testing.T) {
	repo := NewGormProjectMilestoneRepository(setupProjectMilestoneTestDB(t))
	ctx := context.Background()

	milestone := persistedMilestone(t, repo, uuid.New(), 1)

	found, err := repo.FindByID(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, milestone.ID, found.ID)
	assert.Equal(t, "Perancangan", found.Name)
	assert.Equal(t, project.MilestoneStatusPending, found.Status)
	assert.True(t, found.PlannedRevenue.Equal(milestone.PlannedRevenue))
}

func TestGormProjectMilestoneRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormProjectMilestoneRepository(setupProjectMilestoneTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProjectMilestoneRepository_FindByProject_Ordered(t *testing.T) {
	repo := NewGormProjectMilestoneRepository(setupProjectMilestoneTestDB(t))
	ctx := context.Background()
	projectID := uuid.New()

	// inserted out of order on purpose
	persistedMilestone(t, repo, projectID, 3)
	persistedMilestone(t, repo, projectID, 1)
	persistedMilestone(t, repo, projectID, 2)
	persistedMilestone(t, repo, uuid.New(), 1)

	milestones, err := repo.FindByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, milestones, 3)
	for i, m := range milestones {
		assert.Equal(t, i+1, m.MilestoneNumber)
		assert.Equal(t, projectID, m.ProjectID)
	}
}

func TestGormProjectMilestoneRepository_FindByProjectAndNumber(t *testing.T) {
	repo := NewGormProjectMilestoneRepository(setupProjectMilestoneTestDB(t))
	ctx := context.Background()
	projectID := uuid.New()

	persistedMilestone(t, repo, projectID, 1)
	second := persistedMilestone(t, repo, projectID, 2)

	found, err := repo.FindByProjectAndNumber(ctx, projectID, 2)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	_, err = repo.FindByProjectAndNumber(ctx, projectID, 9)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProjectMilestoneRepository_Counts(t *testing.T) {
	repo := NewGormProjectMilestoneRepository(setupProjectMilestoneTestDB(t))
	ctx := context.Background()
	projectID := uuid.New()

	first := persistedMilestone(t, repo, projectID, 1)
	second := persistedMilestone(t, repo, projectID, 2)
	require.NoError(t, second.SetPredecessor(&first.ID))
	require.NoError(t, repo.Save(ctx, second))

	count, err := repo.CountByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	dependents, err := repo.CountDependents(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dependents)

	dependents, err = repo.CountDependents(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dependents)
}

func TestGormProjectMilestoneRepository_SaveUpdatesExistingRow(t *testing.T) {
	repo := NewGormProjectMilestoneRepository(setupProjectMilestoneTestDB(t))
	ctx := context.Background()

	milestone := persistedMilestone(t, repo, uuid.New(), 1)
	require.NoError(t, milestone.ApplyProgress(60, time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, repo.Save(ctx, milestone))

	found, err := repo.FindByID(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, found.CompletionPct)
	assert.Equal(t, project.MilestoneStatusInProgress, found.Status)
	require.NotNil(t, found.ActualStartDate)
}

func TestGormProjectMilestoneRepository_Delete(t *testing.T) {
	repo := NewGormProjectMilestoneRepository(setupProjectMilestoneTestDB(t))
	ctx := context.Background()

	milestone := persistedMilestone(t, repo, uuid.New(), 1)

	require.NoError(t, repo.Delete(ctx, milestone.ID))
	_, err := repo.FindByID(ctx, milestone.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, milestone.ID), shared.ErrNotFound)
}
