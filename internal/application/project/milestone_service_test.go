package project

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/termin/backend/internal/domain/project"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockProjectRepository is a mock implementation of project.Repository
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

var _ project.Repository = (*MockProjectRepository)(nil)

// MockMilestoneRepository is a mock implementation of project.MilestoneRepository
type MockMilestoneRepository struct {
	mock.Mock
}

func (m *MockMilestoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*project.Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Milestone), args.Error(1)
}

func (m *MockMilestoneRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]project.Milestone, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]project.Milestone), args.Error(1)
}

func (m *MockMilestoneRepository) FindByProjectAndNumber(ctx context.Context, projectID uuid.UUID, milestoneNumber int) (*project.Milestone, error) {
	args := m.Called(ctx, projectID, milestoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Milestone), args.Error(1)
}

func (m *MockMilestoneRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMilestoneRepository) CountDependents(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMilestoneRepository) Save(ctx context.Context, milestone *project.Milestone) error {
	args := m.Called(ctx, milestone)
	return args.Error(0)
}

func (m *MockMilestoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ project.MilestoneRepository = (*MockMilestoneRepository)(nil)

// =============================================================================
// Test Helpers
// =============================================================================

func newMilestoneService() (*MilestoneService, *MockProjectRepository, *MockMilestoneRepository) {
	projects := new(MockProjectRepository)
	milestones := new(MockMilestoneRepository)
	return NewMilestoneService(projects, milestones), projects, milestones
}

func createTestProject(t *testing.T, budget int64) *project.Project {
	t.Helper()
	p, err := project.NewProject("PRJ-2025-001", "Implementasi ERP", uuid.New(),
		valueobject.NewMoneyIDRFromInt(budget))
	require.NoError(t, err)
	return p
}

func createDeliveryMilestone(t *testing.T, projectID uuid.UUID, number int) *project.Milestone {
	t.Helper()
	m, err := project.NewMilestone(projectID, number, "Perancangan",
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyIDRFromInt(10_000_000), valueobject.NewMoneyIDRFromInt(4_000_000),
		project.MilestonePriorityMedium)
	require.NoError(t, err)
	return m
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func baseCreateRequest() CreateMilestoneRequest {
	return CreateMilestoneRequest{
		MilestoneNumber:  1,
		Name:             "Perancangan",
		PlannedStartDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		PlannedEndDate:   time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// Create
// =============================================================================

func TestMilestoneService_Create_ExplicitRevenue(t *testing.T) {
	service, projects, milestones := newMilestoneService()
	ctx := context.Background()

	proj := createTestProject(t, 50_000_000)
	projects.On("FindByID", ctx, proj.ID).Return(proj, nil)
	milestones.On("FindByProjectAndNumber", ctx, proj.ID, 1).Return(nil, shared.ErrNotFound)
	milestones.On("Save", ctx, mock.AnythingOfType("*project.Milestone")).Return(nil)

	req := baseCreateRequest()
	revenue := decimal.NewFromInt(12_000_000)
	req.PlannedRevenue = &revenue

	resp, err := service.Create(ctx, proj.ID, req)
	require.NoError(t, err)
	assert.True(t, resp.PlannedRevenue.Equal(revenue))
	assert.Equal(t, "PENDING", resp.Status)
	milestones.AssertNotCalled(t, "CountByProject", mock.Anything, mock.Anything)
}

func TestMilestoneService_Create_AutoSplitRevenue_FirstMilestone(t *testing.T) {
	service, projects, milestones := newMilestoneService()
	ctx := context.Background()

	// no existing milestones: the first one takes the whole budget
	proj := createTestProject(t, 50_000_000)
	projects.On("FindByID", ctx, proj.ID).Return(proj, nil)
	milestones.On("FindByProjectAndNumber", ctx, proj.ID, 1).Return(nil, shared.ErrNotFound)
	milestones.On("CountByProject", ctx, proj.ID).Return(int64(0), nil)
	milestones.On("Save", ctx, mock.AnythingOfType("*project.Milestone")).Return(nil)

	resp, err := service.Create(ctx, proj.ID, baseCreateRequest())
	require.NoError(t, err)
	assert.True(t, resp.PlannedRevenue.Equal(decimal.NewFromInt(50_000_000)))
}

func TestMilestoneService_Create_AutoSplitRevenue_RoundedShare(t *testing.T) {
	service, projects, milestones := newMilestoneService()
	ctx := context.Background()

	// 50M over (2 existing + 1) = 16,666,666.67 rounded to 16,666,667
	proj := createTestProject(t, 50_000_000)
	projects.On("FindByID", ctx, proj.ID).Return(proj, nil)
	milestones.On("FindByProjectAndNumber", ctx, proj.ID, 3).Return(nil, shared.ErrNotFound)
	milestones.On("CountByProject", ctx, proj.ID).Return(int64(2), nil)
	milestones.On("Save", ctx, mock.AnythingOfType("*project.Milestone")).Return(nil)

	req := baseCreateRequest()
	req.MilestoneNumber = 3

	resp, err := service.Create(ctx, proj.ID, req)
	require.NoError(t, err)
	assert.True(t, resp.PlannedRevenue.Equal(decimal.NewFromInt(16_666_667)),
		"expected rounded equal share, got %s", resp.PlannedRevenue)
}

func TestMilestoneService_Create_DuplicateNumber(t *testing.T) {
	service, projects, milestones := newMilestoneService()
	ctx := context.Background()

	proj := createTestProject(t, 50_000_000)
	existing := createDeliveryMilestone(t, proj.ID, 1)
	projects.On("FindByID", ctx, proj.ID).Return(proj, nil)
	milestones.On("FindByProjectAndNumber", ctx, proj.ID, 1).Return(existing, nil)

	_, err := service.Create(ctx, proj.ID, baseCreateRequest())
	assertDomainCode(t, err, "ALREADY_EXISTS")
}

func TestMilestoneService_Create_PredecessorFromDifferentProject(t *testing.T) {
	service, projects, milestones := newMilestoneService()
	ctx := context.Background()

	proj := createTestProject(t, 50_000_000)
	foreign := createDeliveryMilestone(t, uuid.New(), 1)

	projects.On("FindByID", ctx, proj.ID).Return(proj, nil)
	milestones.On("FindByProjectAndNumber", ctx, proj.ID, 2).Return(nil, shared.ErrNotFound)
	milestones.On("FindByID", ctx, foreign.ID).Return(foreign, nil)

	req := baseCreateRequest()
	req.MilestoneNumber = 2
	req.PredecessorID = &foreign.ID

	_, err := service.Create(ctx, proj.ID, req)
	assertDomainCode(t, err, "INVALID_INPUT")
	milestones.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// =============================================================================
// Update
// =============================================================================

func TestMilestoneService_Update_CircularPredecessorRejected(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	projectID := uuid.New()
	first := createDeliveryMilestone(t, projectID, 1)
	second := createDeliveryMilestone(t, projectID, 2)
	require.NoError(t, second.SetPredecessor(&first.ID))

	milestones.On("FindByID", ctx, first.ID).Return(first, nil)
	milestones.On("FindByID", ctx, second.ID).Return(second, nil)

	// second already depends on first; first -> second would close the loop
	_, err := service.Update(ctx, first.ID, UpdateMilestoneRequest{PredecessorID: &second.ID})
	require.Error(t, err)
	assertDomainCode(t, err, "INVALID_INPUT")
	assert.Contains(t, err.Error(), "circular dependency")
	milestones.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestMilestoneService_Update_ValidPredecessorChain(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	projectID := uuid.New()
	first := createDeliveryMilestone(t, projectID, 1)
	second := createDeliveryMilestone(t, projectID, 2)

	milestones.On("FindByID", ctx, first.ID).Return(first, nil)
	milestones.On("FindByID", ctx, second.ID).Return(second, nil)
	milestones.On("Save", ctx, second).Return(nil)

	resp, err := service.Update(ctx, second.ID, UpdateMilestoneRequest{PredecessorID: &first.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, *resp.PredecessorID)
}

func TestMilestoneService_Update_ClearPredecessor(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	projectID := uuid.New()
	first := createDeliveryMilestone(t, projectID, 1)
	second := createDeliveryMilestone(t, projectID, 2)
	require.NoError(t, second.SetPredecessor(&first.ID))

	milestones.On("FindByID", ctx, second.ID).Return(second, nil)
	milestones.On("Save", ctx, second).Return(nil)

	resp, err := service.Update(ctx, second.ID, UpdateMilestoneRequest{ClearPredecessor: true})
	require.NoError(t, err)
	assert.Nil(t, resp.PredecessorID)
}

func TestMilestoneService_Update_ActualEndDateRecomputesDelay(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	milestone := createDeliveryMilestone(t, uuid.New(), 1)
	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	milestones.On("Save", ctx, milestone).Return(nil)

	actualEnd := time.Date(2025, time.February, 11, 0, 0, 0, 0, time.UTC)
	reason := "Menunggu approval klien"
	resp, err := service.Update(ctx, milestone.ID, UpdateMilestoneRequest{
		ActualEndDate: &actualEnd,
		DelayReason:   &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.DelayDays)
	assert.Equal(t, reason, resp.DelayReason)
}

// =============================================================================
// Remove
// =============================================================================

func TestMilestoneService_Remove(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	milestone := createDeliveryMilestone(t, uuid.New(), 1)
	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	milestones.On("CountDependents", ctx, milestone.ID).Return(int64(0), nil)
	milestones.On("Delete", ctx, milestone.ID).Return(nil)

	require.NoError(t, service.Remove(ctx, milestone.ID))
	milestones.AssertExpectations(t)
}

func TestMilestoneService_Remove_HasDependents(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	milestone := createDeliveryMilestone(t, uuid.New(), 1)
	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	milestones.On("CountDependents", ctx, milestone.ID).Return(int64(2), nil)

	err := service.Remove(ctx, milestone.ID)
	assertDomainCode(t, err, "INVALID_INPUT")
	milestones.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// =============================================================================
// Progress and completion
// =============================================================================

func TestMilestoneService_UpdateProgress(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	milestone := createDeliveryMilestone(t, uuid.New(), 1)
	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	milestones.On("Save", ctx, milestone).Return(nil)

	resp, err := service.UpdateProgress(ctx, milestone.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, resp.CompletionPct)
	assert.Equal(t, "IN_PROGRESS", resp.Status)
	assert.NotNil(t, resp.ActualStartDate)
}

func TestMilestoneService_UpdateProgress_OutOfRange(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	milestone := createDeliveryMilestone(t, uuid.New(), 1)
	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)

	_, err := service.UpdateProgress(ctx, milestone.ID, 101)
	require.Error(t, err)
	milestones.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestMilestoneService_MarkAsCompleted_PredecessorIncomplete(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	projectID := uuid.New()
	predecessor := createDeliveryMilestone(t, projectID, 1)
	require.NoError(t, predecessor.ApplyProgress(50, time.Now()))

	milestone := createDeliveryMilestone(t, projectID, 2)
	require.NoError(t, milestone.SetPredecessor(&predecessor.ID))

	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	milestones.On("FindByID", ctx, predecessor.ID).Return(predecessor, nil)

	_, err := service.MarkAsCompleted(ctx, milestone.ID)
	assertDomainCode(t, err, "INVALID_INPUT")
	milestones.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestMilestoneService_MarkAsCompleted_PredecessorCompleted(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	projectID := uuid.New()
	predecessor := createDeliveryMilestone(t, projectID, 1)
	require.NoError(t, predecessor.Complete(time.Now()))

	milestone := createDeliveryMilestone(t, projectID, 2)
	require.NoError(t, milestone.SetPredecessor(&predecessor.ID))

	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	milestones.On("FindByID", ctx, predecessor.ID).Return(predecessor, nil)
	milestones.On("Save", ctx, milestone).Return(nil)

	resp, err := service.MarkAsCompleted(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.True(t, resp.RecognizedRevenue.Equal(resp.PlannedRevenue))
}

func TestMilestoneService_MarkAsCompleted_NoPredecessor(t *testing.T) {
	service, _, milestones := newMilestoneService()
	ctx := context.Background()

	milestone := createDeliveryMilestone(t, uuid.New(), 1)
	milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	milestones.On("Save", ctx, milestone).Return(nil)

	resp, err := service.MarkAsCompleted(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", resp.Status)
}

// =============================================================================
// CheckDependencies
// =============================================================================

func TestMilestoneService_CheckDependencies(t *testing.T) {
	t.Run("no predecessor", func(t *testing.T) {
		service, _, milestones := newMilestoneService()
		ctx := context.Background()

		milestone := createDeliveryMilestone(t, uuid.New(), 1)
		milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)

		resp, err := service.CheckDependencies(ctx, milestone.ID)
		require.NoError(t, err)
		assert.True(t, resp.CanStart)
		assert.Empty(t, resp.Reasons)
		assert.Nil(t, resp.PredecessorStatus)
	})

	t.Run("pending predecessor blocks start", func(t *testing.T) {
		service, _, milestones := newMilestoneService()
		ctx := context.Background()

		projectID := uuid.New()
		predecessor := createDeliveryMilestone(t, projectID, 1)
		milestone := createDeliveryMilestone(t, projectID, 2)
		require.NoError(t, milestone.SetPredecessor(&predecessor.ID))

		milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
		milestones.On("FindByID", ctx, predecessor.ID).Return(predecessor, nil)

		resp, err := service.CheckDependencies(ctx, milestone.ID)
		require.NoError(t, err)
		assert.False(t, resp.CanStart)
		require.Len(t, resp.Reasons, 1)
		assert.Contains(t, resp.Reasons[0], predecessor.Name)
		require.NotNil(t, resp.PredecessorStatus)
		assert.Equal(t, "PENDING", *resp.PredecessorStatus)
	})

	t.Run("completed predecessor clears start", func(t *testing.T) {
		service, _, milestones := newMilestoneService()
		ctx := context.Background()

		projectID := uuid.New()
		predecessor := createDeliveryMilestone(t, projectID, 1)
		require.NoError(t, predecessor.Complete(time.Now()))
		milestone := createDeliveryMilestone(t, projectID, 2)
		require.NoError(t, milestone.SetPredecessor(&predecessor.ID))

		milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
		milestones.On("FindByID", ctx, predecessor.ID).Return(predecessor, nil)

		resp, err := service.CheckDependencies(ctx, milestone.ID)
		require.NoError(t, err)
		assert.True(t, resp.CanStart)
		assert.Empty(t, resp.Reasons)
	})
}
