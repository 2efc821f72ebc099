package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
	"github.com/termin/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The schedule guard and invoice issuance paths take row locks that the
// sqlite driver does not support; they run against postgres only. The
// plain CRUD paths are covered here.
func setupPaymentMilestoneTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.PaymentMilestoneModel{})
	require.NoError(t, err)

	return db
}

func persistedPaymentMilestone(t *testing.T, repo *GormPaymentMilestoneRepository, quotationID uuid.UUID, number int, percentage int64) *billing.PaymentMilestone {
	t.Helper()
	m, err := billing.NewPaymentMilestone(quotationID, number, "Termin", "",
		decimal.NewFromInt(percentage), valueobject.NewMoneyIDRFromInt(100_000_000))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), m))
	return m
}

func TestGormPaymentMilestoneRepository_SaveAndFindByID(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))
	ctx := context.Background()

	quotationID := uuid.New()
	milestone, err := billing.NewPaymentMilestone(quotationID, 1, "Down Payment", "Uang Muka",
		decimal.NewFromInt(25), valueobject.NewMoneyIDRFromInt(100_000_000))
	require.NoError(t, err)
	milestone.Deliverables = []string{"Dokumen desain", "Mockup UI"}
	require.NoError(t, repo.Save(ctx, milestone))

	found, err := repo.FindByID(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, quotationID, found.QuotationID)
	assert.Equal(t, "Uang Muka", found.NameID)
	assert.True(t, found.Amount.Equal(decimal.NewFromInt(25_000_000)))
	assert.Equal(t, []string{"Dokumen desain", "Mockup UI"}, []string(found.Deliverables))
	assert.False(t, found.IsInvoiced())
}

func TestGormPaymentMilestoneRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormPaymentMilestoneRepository_FindByQuotation_Ordered(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))
	ctx := context.Background()
	quotationID := uuid.New()

	persistedPaymentMilestone(t, repo, quotationID, 3, 25)
	persistedPaymentMilestone(t, repo, quotationID, 1, 25)
	persistedPaymentMilestone(t, repo, quotationID, 2, 50)
	persistedPaymentMilestone(t, repo, uuid.New(), 1, 100)

	schedule, err := repo.FindByQuotation(ctx, quotationID)
	require.NoError(t, err)
	require.Len(t, schedule, 3)
	for i, m := range schedule {
		assert.Equal(t, i+1, m.MilestoneNumber)
		assert.Equal(t, quotationID, m.QuotationID)
	}
}

func TestGormPaymentMilestoneRepository_FindByQuotationAndNumber(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))
	ctx := context.Background()
	quotationID := uuid.New()

	persistedPaymentMilestone(t, repo, quotationID, 1, 25)
	second := persistedPaymentMilestone(t, repo, quotationID, 2, 75)

	found, err := repo.FindByQuotationAndNumber(ctx, quotationID, 2)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	_, err = repo.FindByQuotationAndNumber(ctx, quotationID, 9)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormPaymentMilestoneRepository_DuplicateNumberRejected(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))
	ctx := context.Background()
	quotationID := uuid.New()

	persistedPaymentMilestone(t, repo, quotationID, 1, 25)

	duplicate, err := billing.NewPaymentMilestone(quotationID, 1, "Termin", "",
		decimal.NewFromInt(30), valueobject.NewMoneyIDRFromInt(100_000_000))
	require.NoError(t, err)
	assert.Error(t, repo.Save(ctx, duplicate), "schedule ordinals are unique per quotation")
}

func TestGormPaymentMilestoneRepository_SaveAll(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))
	ctx := context.Background()
	quotationID := uuid.New()

	first := persistedPaymentMilestone(t, repo, quotationID, 1, 40)
	second := persistedPaymentMilestone(t, repo, quotationID, 2, 60)

	first.Amount = decimal.NewFromInt(48_000_000)
	second.Amount = decimal.NewFromInt(72_000_000)
	require.NoError(t, repo.SaveAll(ctx, []billing.PaymentMilestone{*first, *second}))

	schedule, err := repo.FindByQuotation(ctx, quotationID)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.True(t, schedule[0].Amount.Equal(decimal.NewFromInt(48_000_000)))
	assert.True(t, schedule[1].Amount.Equal(decimal.NewFromInt(72_000_000)))
}

func TestGormPaymentMilestoneRepository_InvoiceLinkSurvivesRoundTrip(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))
	ctx := context.Background()

	milestone := persistedPaymentMilestone(t, repo, uuid.New(), 1, 25)
	invoiceID := uuid.New()
	require.NoError(t, milestone.AttachInvoice(invoiceID))
	require.NoError(t, repo.Save(ctx, milestone))

	found, err := repo.FindByID(ctx, milestone.ID)
	require.NoError(t, err)
	assert.True(t, found.IsInvoiced())
	assert.Equal(t, invoiceID, *found.InvoiceID)
}

func TestGormPaymentMilestoneRepository_Delete(t *testing.T) {
	repo := NewGormPaymentMilestoneRepository(setupPaymentMilestoneTestDB(t))
	ctx := context.Background()

	milestone := persistedPaymentMilestone(t, repo, uuid.New(), 1, 25)

	require.NoError(t, repo.Delete(ctx, milestone.ID))
	_, err := repo.FindByID(ctx, milestone.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, milestone.ID), shared.ErrNotFound)
}
