package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentMilestoneRepository implements PaymentMilestoneRepository using GORM
type GormPaymentMilestoneRepository struct {
	db *gorm.DB
}

// NewGormPaymentMilestoneRepository creates a new GormPaymentMilestoneRepository
func NewGormPaymentMilestoneRepository(db *gorm.DB) *GormPaymentMilestoneRepository {
	return &GormPaymentMilestoneRepository{db: db}
}

// FindByID finds a payment milestone by its ID
func (r *GormPaymentMilestoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentMilestone, error) {
	var model models.PaymentMilestoneModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByQuotation returns a quotation's schedule ordered by milestone number
func (r *GormPaymentMilestoneRepository) FindByQuotation(ctx context.Context, quotationID uuid.UUID) ([]billing.PaymentMilestone, error) {
	var milestoneModels []models.PaymentMilestoneModel
	if err := r.db.WithContext(ctx).
		Where("quotation_id = ?", quotationID).
		Order("milestone_number ASC").
		Find(&milestoneModels).Error; err != nil {
		return nil, err
	}
	milestones := make([]billing.PaymentMilestone, len(milestoneModels))
	for i, model := range milestoneModels {
		milestones[i] = *model.ToDomain()
	}
	return milestones, nil
}

// FindByQuotationAndNumber finds a milestone by its ordinal within a quotation
func (r *GormPaymentMilestoneRepository) FindByQuotationAndNumber(ctx context.Context, quotationID uuid.UUID, milestoneNumber int) (*billing.PaymentMilestone, error) {
	var model models.PaymentMilestoneModel
	if err := r.db.WithContext(ctx).
		Where("quotation_id = ? AND milestone_number = ?", quotationID, milestoneNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveWithScheduleGuard persists the milestone inside a transaction that
// locks the owning quotation row and re-checks the percentage sum.
// Concurrent schedule writes for one quotation serialize on the row lock,
// closing the window where two writers both pass the sum check.
func (r *GormPaymentMilestoneRepository) SaveWithScheduleGuard(ctx context.Context, milestone *billing.PaymentMilestone) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quotation models.QuotationModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&quotation, "id = ?", milestone.QuotationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		var otherSum struct {
			Total decimal.Decimal
		}
		if err := tx.Model(&models.PaymentMilestoneModel{}).
			Select("COALESCE(SUM(percentage), 0) as total").
			Where("quotation_id = ? AND id <> ?", milestone.QuotationID, milestone.ID).
			Scan(&otherSum).Error; err != nil {
			return err
		}
		if otherSum.Total.Add(milestone.Percentage).GreaterThan(billing.MaxSchedulePercentage) {
			return shared.NewDomainError("INVALID_INPUT", "Total milestone percentage cannot exceed 100")
		}

		return tx.Save(models.FromDomainPaymentMilestone(milestone)).Error
	})
}

// Save creates or updates a payment milestone without the schedule guard
func (r *GormPaymentMilestoneRepository) Save(ctx context.Context, milestone *billing.PaymentMilestone) error {
	model := models.FromDomainPaymentMilestone(milestone)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveAll persists a batch of milestones in one transaction
func (r *GormPaymentMilestoneRepository) SaveAll(ctx context.Context, milestones []billing.PaymentMilestone) error {
	if len(milestones) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range milestones {
			if err := tx.Save(models.FromDomainPaymentMilestone(&milestones[i])).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a payment milestone
func (r *GormPaymentMilestoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentMilestoneModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormPaymentMilestoneRepository implements PaymentMilestoneRepository
var _ billing.PaymentMilestoneRepository = (*GormPaymentMilestoneRepository)(nil)
