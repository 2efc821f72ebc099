package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/project"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockQuotationRepository is a mock implementation of QuotationRepository
type MockQuotationRepository struct {
	mock.Mock
}

func (m *MockQuotationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Quotation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Quotation), args.Error(1)
}

func (m *MockQuotationRepository) Save(ctx context.Context, quotation *billing.Quotation) error {
	args := m.Called(ctx, quotation)
	return args.Error(0)
}

var _ billing.QuotationRepository = (*MockQuotationRepository)(nil)

// MockPaymentMilestoneRepository is a mock implementation of PaymentMilestoneRepository
type MockPaymentMilestoneRepository struct {
	mock.Mock
}

func (m *MockPaymentMilestoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentMilestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentMilestone), args.Error(1)
}

func (m *MockPaymentMilestoneRepository) FindByQuotation(ctx context.Context, quotationID uuid.UUID) ([]billing.PaymentMilestone, error) {
	args := m.Called(ctx, quotationID)
	return args.Get(0).([]billing.PaymentMilestone), args.Error(1)
}

func (m *MockPaymentMilestoneRepository) FindByQuotationAndNumber(ctx context.Context, quotationID uuid.UUID, milestoneNumber int) (*billing.PaymentMilestone, error) {
	args := m.Called(ctx, quotationID, milestoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentMilestone), args.Error(1)
}

func (m *MockPaymentMilestoneRepository) SaveWithScheduleGuard(ctx context.Context, milestone *billing.PaymentMilestone) error {
	args := m.Called(ctx, milestone)
	return args.Error(0)
}

func (m *MockPaymentMilestoneRepository) Save(ctx context.Context, milestone *billing.PaymentMilestone) error {
	args := m.Called(ctx, milestone)
	return args.Error(0)
}

func (m *MockPaymentMilestoneRepository) SaveAll(ctx context.Context, milestones []billing.PaymentMilestone) error {
	args := m.Called(ctx, milestones)
	return args.Error(0)
}

func (m *MockPaymentMilestoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ billing.PaymentMilestoneRepository = (*MockPaymentMilestoneRepository)(nil)

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) IssueForMilestone(ctx context.Context, invoice *billing.Invoice, milestone *billing.PaymentMilestone) error {
	args := m.Called(ctx, invoice, milestone)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

var _ billing.InvoiceRepository = (*MockInvoiceRepository)(nil)

// MockProjectMilestoneRepository is a mock implementation of project.MilestoneRepository
type MockProjectMilestoneRepository struct {
	mock.Mock
}

func (m *MockProjectMilestoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*project.Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Milestone), args.Error(1)
}

func (m *MockProjectMilestoneRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]project.Milestone, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]project.Milestone), args.Error(1)
}

func (m *MockProjectMilestoneRepository) FindByProjectAndNumber(ctx context.Context, projectID uuid.UUID, milestoneNumber int) (*project.Milestone, error) {
	args := m.Called(ctx, projectID, milestoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Milestone), args.Error(1)
}

func (m *MockProjectMilestoneRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProjectMilestoneRepository) CountDependents(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProjectMilestoneRepository) Save(ctx context.Context, milestone *project.Milestone) error {
	args := m.Called(ctx, milestone)
	return args.Error(0)
}

func (m *MockProjectMilestoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ project.MilestoneRepository = (*MockProjectMilestoneRepository)(nil)

// =============================================================================
// Test Helpers
// =============================================================================

type scheduleMocks struct {
	quotations        *MockQuotationRepository
	milestones        *MockPaymentMilestoneRepository
	invoices          *MockInvoiceRepository
	projectMilestones *MockProjectMilestoneRepository
}

func newScheduleService() (*PaymentScheduleService, *scheduleMocks) {
	m := &scheduleMocks{
		quotations:        new(MockQuotationRepository),
		milestones:        new(MockPaymentMilestoneRepository),
		invoices:          new(MockInvoiceRepository),
		projectMilestones: new(MockProjectMilestoneRepository),
	}
	return NewPaymentScheduleService(m.quotations, m.milestones, m.invoices, m.projectMilestones), m
}

func createTestQuotation(t *testing.T, total int64) *billing.Quotation {
	t.Helper()
	q, err := billing.NewQuotation("Q-2025-001", uuid.New(), "PT Maju Jaya",
		valueobject.NewMoneyIDRFromInt(total), billing.PaymentTypeTermin)
	require.NoError(t, err)
	return q
}

func createTestMilestone(t *testing.T, quotationID uuid.UUID, number int, percentage int64, total int64) *billing.PaymentMilestone {
	t.Helper()
	m, err := billing.NewPaymentMilestone(quotationID, number, "Termin", "",
		decimal.NewFromInt(percentage), valueobject.NewMoneyIDRFromInt(total))
	require.NoError(t, err)
	return m
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

// =============================================================================
// AddMilestone
// =============================================================================

func TestPaymentScheduleService_AddMilestone_Success(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	quotation := createTestQuotation(t, 100_000_000)
	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotationAndNumber", ctx, quotation.ID, 1).Return(nil, shared.ErrNotFound)
	mocks.milestones.On("FindByQuotation", ctx, quotation.ID).Return([]billing.PaymentMilestone{}, nil)
	mocks.milestones.On("SaveWithScheduleGuard", ctx, mock.AnythingOfType("*billing.PaymentMilestone")).Return(nil)

	resp, err := service.AddMilestone(ctx, quotation.ID, AddMilestoneRequest{
		MilestoneNumber: 1,
		Name:            "Down Payment",
		NameID:          "Uang Muka",
		Percentage:      decimal.NewFromInt(25),
	})

	require.NoError(t, err)
	assert.True(t, resp.Amount.Equal(decimal.NewFromInt(25_000_000)))
	assert.Equal(t, "Uang Muka", resp.NameID)
	mocks.milestones.AssertExpectations(t)
}

func TestPaymentScheduleService_AddMilestone_QuotationNotFound(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()
	quotationID := uuid.New()

	mocks.quotations.On("FindByID", ctx, quotationID).Return(nil, shared.ErrNotFound)

	_, err := service.AddMilestone(ctx, quotationID, AddMilestoneRequest{
		MilestoneNumber: 1, Name: "DP", Percentage: decimal.NewFromInt(25),
	})
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestPaymentScheduleService_AddMilestone_DuplicateNumber(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	quotation := createTestQuotation(t, 100_000_000)
	existing := createTestMilestone(t, quotation.ID, 1, 25, 100_000_000)

	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotationAndNumber", ctx, quotation.ID, 1).Return(existing, nil)

	_, err := service.AddMilestone(ctx, quotation.ID, AddMilestoneRequest{
		MilestoneNumber: 1, Name: "DP", Percentage: decimal.NewFromInt(25),
	})
	assertDomainCode(t, err, "ALREADY_EXISTS")
}

func TestPaymentScheduleService_AddMilestone_ExceedsPercentageBudget(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	// 25 + 50 + 25 already exhaust the schedule
	quotation := createTestQuotation(t, 100_000_000)
	schedule := []billing.PaymentMilestone{
		*createTestMilestone(t, quotation.ID, 1, 25, 100_000_000),
		*createTestMilestone(t, quotation.ID, 2, 50, 100_000_000),
		*createTestMilestone(t, quotation.ID, 3, 25, 100_000_000),
	}

	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotationAndNumber", ctx, quotation.ID, 4).Return(nil, shared.ErrNotFound)
	mocks.milestones.On("FindByQuotation", ctx, quotation.ID).Return(schedule, nil)

	_, err := service.AddMilestone(ctx, quotation.ID, AddMilestoneRequest{
		MilestoneNumber: 4, Name: "Extra", Percentage: decimal.NewFromInt(20),
	})
	assertDomainCode(t, err, "INVALID_INPUT")
	mocks.milestones.AssertNotCalled(t, "SaveWithScheduleGuard", mock.Anything, mock.Anything)
}

// =============================================================================
// UpdateMilestone / RemoveMilestone
// =============================================================================

func TestPaymentScheduleService_UpdateMilestone_Invoiced(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	milestone := createTestMilestone(t, uuid.New(), 1, 25, 100_000_000)
	require.NoError(t, milestone.AttachInvoice(uuid.New()))
	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)

	newName := "Renamed"
	_, err := service.UpdateMilestone(ctx, milestone.ID, UpdateMilestoneRequest{Name: &newName})
	assertDomainCode(t, err, "CONFLICT")
}

func TestPaymentScheduleService_UpdateMilestone_PercentageRevalidated(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	quotation := createTestQuotation(t, 100_000_000)
	target := createTestMilestone(t, quotation.ID, 1, 25, 100_000_000)
	other := createTestMilestone(t, quotation.ID, 2, 50, 100_000_000)
	schedule := []billing.PaymentMilestone{*target, *other}

	mocks.milestones.On("FindByID", ctx, target.ID).Return(target, nil)
	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotation", ctx, quotation.ID).Return(schedule, nil)

	// 60 + the other 50 would exceed 100
	tooMuch := decimal.NewFromInt(60)
	_, err := service.UpdateMilestone(ctx, target.ID, UpdateMilestoneRequest{Percentage: &tooMuch})
	assertDomainCode(t, err, "INVALID_INPUT")

	// 50 + 50 fits and the amount follows
	mocks.milestones.On("SaveWithScheduleGuard", ctx, target).Return(nil)
	half := decimal.NewFromInt(50)
	resp, err := service.UpdateMilestone(ctx, target.ID, UpdateMilestoneRequest{Percentage: &half})
	require.NoError(t, err)
	assert.True(t, resp.Amount.Equal(decimal.NewFromInt(50_000_000)))
}

func TestPaymentScheduleService_RemoveMilestone(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	milestone := createTestMilestone(t, uuid.New(), 1, 25, 100_000_000)
	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	mocks.milestones.On("Delete", ctx, milestone.ID).Return(nil)

	require.NoError(t, service.RemoveMilestone(ctx, milestone.ID))
	mocks.milestones.AssertExpectations(t)
}

func TestPaymentScheduleService_RemoveMilestone_Invoiced(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	milestone := createTestMilestone(t, uuid.New(), 1, 25, 100_000_000)
	require.NoError(t, milestone.AttachInvoice(uuid.New()))
	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)

	err := service.RemoveMilestone(ctx, milestone.ID)
	assertDomainCode(t, err, "CONFLICT")
	mocks.milestones.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// =============================================================================
// ValidateSchedule / RecalculateAmounts / GetProgress
// =============================================================================

func TestPaymentScheduleService_ValidateSchedule(t *testing.T) {
	tests := []struct {
		name        string
		percentages []int64
		valid       bool
	}{
		{"complete schedule", []int64{25, 50, 25}, true},
		{"incomplete schedule", []int64{25, 50}, false},
		{"empty schedule", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mocks := newScheduleService()
			ctx := context.Background()
			quotation := createTestQuotation(t, 100_000_000)

			schedule := make([]billing.PaymentMilestone, 0, len(tt.percentages))
			for i, pct := range tt.percentages {
				schedule = append(schedule, *createTestMilestone(t, quotation.ID, i+1, pct, 100_000_000))
			}

			mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
			mocks.milestones.On("FindByQuotation", ctx, quotation.ID).Return(schedule, nil)

			resp, err := service.ValidateSchedule(ctx, quotation.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, resp.Valid)
			assert.Equal(t, len(tt.percentages), resp.MilestoneCount)
		})
	}
}

func TestPaymentScheduleService_RecalculateAmounts_ResidualToLastMilestone(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	// Rp 100.01 split 50/50 rounds each tranche to 50.01; the residual
	// of -0.01 lands on the highest-numbered milestone.
	quotation, err := billing.NewQuotation("Q-2025-002", uuid.New(), "PT Sinar",
		valueobject.NewMoneyIDR(decimal.RequireFromString("100.01")), billing.PaymentTypeTermin)
	require.NoError(t, err)

	first, err := billing.NewPaymentMilestone(quotation.ID, 1, "Termin 1", "",
		decimal.NewFromInt(50), quotation.GetTotalMoney())
	require.NoError(t, err)
	second, err := billing.NewPaymentMilestone(quotation.ID, 2, "Termin 2", "",
		decimal.NewFromInt(50), quotation.GetTotalMoney())
	require.NoError(t, err)

	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotation", ctx, quotation.ID).Return([]billing.PaymentMilestone{*first, *second}, nil)
	mocks.milestones.On("SaveAll", ctx, mock.AnythingOfType("[]billing.PaymentMilestone")).Return(nil)

	responses, err := service.RecalculateAmounts(ctx, quotation.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)

	assert.True(t, responses[0].Amount.Equal(decimal.RequireFromString("50.01")))
	assert.True(t, responses[1].Amount.Equal(decimal.RequireFromString("50.00")))

	sum := responses[0].Amount.Add(responses[1].Amount)
	assert.True(t, sum.Equal(quotation.TotalAmount), "amounts must reconcile with the quotation total")
}

func TestPaymentScheduleService_RecalculateAmounts_AfterTotalChange(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	// schedule built against an older total of 100M; quotation now 120M
	quotation := createTestQuotation(t, 120_000_000)
	schedule := []billing.PaymentMilestone{
		*createTestMilestone(t, quotation.ID, 1, 25, 100_000_000),
		*createTestMilestone(t, quotation.ID, 2, 75, 100_000_000),
	}

	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotation", ctx, quotation.ID).Return(schedule, nil)
	mocks.milestones.On("SaveAll", ctx, mock.AnythingOfType("[]billing.PaymentMilestone")).Return(nil)

	responses, err := service.RecalculateAmounts(ctx, quotation.ID)
	require.NoError(t, err)
	assert.True(t, responses[0].Amount.Equal(decimal.NewFromInt(30_000_000)))
	assert.True(t, responses[1].Amount.Equal(decimal.NewFromInt(90_000_000)))
}

func TestPaymentScheduleService_GetProgress(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	quotation := createTestQuotation(t, 100_000_000)
	first := createTestMilestone(t, quotation.ID, 1, 25, 100_000_000)
	second := createTestMilestone(t, quotation.ID, 2, 50, 100_000_000)
	third := createTestMilestone(t, quotation.ID, 3, 25, 100_000_000)
	require.NoError(t, first.AttachInvoice(uuid.New()))
	require.NoError(t, second.AttachInvoice(uuid.New()))

	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotation", ctx, quotation.ID).
		Return([]billing.PaymentMilestone{*first, *second, *third}, nil)

	progress, err := service.GetProgress(ctx, quotation.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, progress.MilestoneCount)
	assert.Equal(t, 2, progress.InvoicedCount)
	assert.Equal(t, 67, progress.InvoicedPercentage)
	assert.True(t, progress.InvoicedAmount.Equal(decimal.NewFromInt(75_000_000)))
	assert.True(t, progress.OutstandingAmount.Equal(decimal.NewFromInt(25_000_000)))
}

// =============================================================================
// GenerateInvoice
// =============================================================================

func TestPaymentScheduleService_GenerateInvoice_Success(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()
	actorID := uuid.New()

	quotation := createTestQuotation(t, 100_000_000)
	milestone := createTestMilestone(t, quotation.ID, 1, 25, 100_000_000)

	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.invoices.On("IssueForMilestone", ctx, mock.AnythingOfType("*billing.Invoice"), milestone).
		Run(func(args mock.Arguments) {
			inv := args.Get(1).(*billing.Invoice)
			inv.InvoiceNumber = billing.FormatInvoiceNumber(2025, time.March, 1)
		}).
		Return(nil)

	resp, err := service.GenerateInvoice(ctx, milestone.ID, actorID)
	require.NoError(t, err)

	assert.Equal(t, "INV/2025/03/00001", resp.InvoiceNumber)
	assert.True(t, resp.Amount.Equal(decimal.NewFromInt(25_000_000)))
	assert.True(t, resp.MateraiRequired, "Rp 25.000.000 is above the stamp duty threshold")
	assert.Equal(t, milestone.ID, *resp.PaymentMilestoneID)
	assert.True(t, milestone.IsInvoiced())
}

func TestPaymentScheduleService_GenerateInvoice_NotIdempotent(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	milestone := createTestMilestone(t, uuid.New(), 1, 25, 100_000_000)
	require.NoError(t, milestone.AttachInvoice(uuid.New()))
	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)

	_, err := service.GenerateInvoice(ctx, milestone.ID, uuid.New())
	assertDomainCode(t, err, "CONFLICT")
	mocks.invoices.AssertNotCalled(t, "IssueForMilestone", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentScheduleService_GenerateInvoice_DueDateFromPreviousMilestone(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	quotation := createTestQuotation(t, 100_000_000)
	previous := createTestMilestone(t, quotation.ID, 1, 25, 100_000_000)
	require.NoError(t, previous.SetDueDate(time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)))

	milestone := createTestMilestone(t, quotation.ID, 2, 50, 100_000_000)
	require.NoError(t, milestone.SetDueOffset(30))

	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.milestones.On("FindByQuotationAndNumber", ctx, quotation.ID, 1).Return(previous, nil)
	mocks.invoices.On("IssueForMilestone", ctx, mock.AnythingOfType("*billing.Invoice"), milestone).Return(nil)

	resp, err := service.GenerateInvoice(ctx, milestone.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC), resp.DueDate)
}

// =============================================================================
// LinkToProjectMilestone
// =============================================================================

func TestPaymentScheduleService_LinkToProjectMilestone(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	projectID := uuid.New()
	quotation := createTestQuotation(t, 100_000_000)
	quotation.AssignProject(projectID)
	milestone := createTestMilestone(t, quotation.ID, 1, 25, 100_000_000)

	delivery, err := project.NewMilestone(projectID, 1, "Perancangan",
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyIDRFromInt(10_000_000), valueobject.ZeroIDR(), project.MilestonePriorityMedium)
	require.NoError(t, err)

	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.projectMilestones.On("FindByID", ctx, delivery.ID).Return(delivery, nil)
	mocks.milestones.On("Save", ctx, milestone).Return(nil)

	resp, err := service.LinkToProjectMilestone(ctx, milestone.ID, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.ID, *resp.ProjectMilestoneID)
}

func TestPaymentScheduleService_LinkToProjectMilestone_DifferentProject(t *testing.T) {
	service, mocks := newScheduleService()
	ctx := context.Background()

	quotation := createTestQuotation(t, 100_000_000)
	quotation.AssignProject(uuid.New())
	milestone := createTestMilestone(t, quotation.ID, 1, 25, 100_000_000)

	delivery, err := project.NewMilestone(uuid.New(), 1, "Perancangan",
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyIDRFromInt(10_000_000), valueobject.ZeroIDR(), project.MilestonePriorityMedium)
	require.NoError(t, err)

	mocks.milestones.On("FindByID", ctx, milestone.ID).Return(milestone, nil)
	mocks.quotations.On("FindByID", ctx, quotation.ID).Return(quotation, nil)
	mocks.projectMilestones.On("FindByID", ctx, delivery.ID).Return(delivery, nil)

	_, err = service.LinkToProjectMilestone(ctx, milestone.ID, delivery.ID)
	assertDomainCode(t, err, "INVALID_INPUT")
}
