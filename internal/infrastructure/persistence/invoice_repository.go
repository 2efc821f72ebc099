package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db, now: time.Now}
}

// FindByID finds an invoice by its ID with payments preloaded
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// IssueForMilestone claims the next per-period invoice number, inserts
// the invoice, and stamps its id onto the milestone in one transaction.
// The sequence row is locked so concurrent issuance never hands out the
// same number, and a failed stamp rolls the invoice back rather than
// leaving it orphaned.
func (r *GormInvoiceRepository) IssueForMilestone(ctx context.Context, invoice *billing.Invoice, milestone *billing.PaymentMilestone) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()
		sequence, err := claimInvoiceSequence(tx, now.Year(), int(now.Month()))
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = billing.FormatInvoiceNumber(now.Year(), now.Month(), sequence)

		if err := tx.Create(models.FromDomainInvoice(invoice)).Error; err != nil {
			return err
		}
		return tx.Save(models.FromDomainPaymentMilestone(milestone)).Error
	})
}

// claimInvoiceSequence increments and returns the counter for the given
// period under a row lock, creating the counter row on first use.
func claimInvoiceSequence(tx *gorm.DB, year, month int) (int64, error) {
	var seq models.InvoiceSequenceModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ? AND month = ?", year, month).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.InvoiceSequenceModel{Year: year, Month: month, LastValue: 0}
		// Another transaction may create the row first; the retry
		// then finds and locks it.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
			return 0, err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ? AND month = ?", year, month).
			First(&seq).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	seq.LastValue++
	if err := tx.Model(&models.InvoiceSequenceModel{}).
		Where("year = ? AND month = ?", year, month).
		Update("last_value", seq.LastValue).Error; err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.FromDomainInvoice(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
