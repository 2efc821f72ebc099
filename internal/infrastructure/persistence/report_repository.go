package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/report"
	"github.com/termin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReportRepository implements report.Repository using GORM. It loads
// the filtered milestone set plus every project's invoices (payments
// preloaded) and expenses in a fixed number of queries, so the analytics
// engine aggregates purely in memory.
type GormReportRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db, now: time.Now}
}

// FindMilestoneSnapshots loads the analytics read model for a filter
func (r *GormReportRepository) FindMilestoneSnapshots(ctx context.Context, filter report.Filter) ([]report.MilestoneSnapshot, error) {
	start, end := filter.Window(r.now())

	query := r.db.WithContext(ctx).
		Model(&models.ProjectMilestoneModel{}).
		Where("planned_end_date >= ? AND planned_end_date <= ?", start, end)
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}

	var milestoneModels []models.ProjectMilestoneModel
	if err := query.Order("planned_end_date ASC").Find(&milestoneModels).Error; err != nil {
		return nil, err
	}
	if len(milestoneModels) == 0 {
		return []report.MilestoneSnapshot{}, nil
	}

	projectIDs := make([]uuid.UUID, 0, len(milestoneModels))
	seenProjects := map[uuid.UUID]bool{}
	milestoneIDs := make([]uuid.UUID, 0, len(milestoneModels))
	for i := range milestoneModels {
		milestoneIDs = append(milestoneIDs, milestoneModels[i].ID)
		if !seenProjects[milestoneModels[i].ProjectID] {
			seenProjects[milestoneModels[i].ProjectID] = true
			projectIDs = append(projectIDs, milestoneModels[i].ProjectID)
		}
	}

	invoicesByProject, invoicesByID, err := r.loadProjectInvoices(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	expensesByProject, err := r.loadProjectExpenses(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	linkedInvoiceIDs, err := r.loadMilestoneInvoiceLinks(ctx, milestoneIDs)
	if err != nil {
		return nil, err
	}

	snapshots := make([]report.MilestoneSnapshot, len(milestoneModels))
	for i := range milestoneModels {
		model := &milestoneModels[i]
		snapshot := report.MilestoneSnapshot{
			Milestone: *model.ToDomain(),
			Invoices:  invoicesByProject[model.ProjectID],
			Expenses:  expensesByProject[model.ProjectID],
		}
		if invoiceID, ok := linkedInvoiceIDs[model.ID]; ok {
			snapshot.LinkedInvoice = invoicesByID[invoiceID]
		}
		snapshots[i] = snapshot
	}
	return snapshots, nil
}

func (r *GormReportRepository) loadProjectInvoices(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]billing.Invoice, map[uuid.UUID]*billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("project_id IN ?", projectIDs).
		Find(&invoiceModels).Error; err != nil {
		return nil, nil, err
	}

	byProject := make(map[uuid.UUID][]billing.Invoice)
	byID := make(map[uuid.UUID]*billing.Invoice)
	for i := range invoiceModels {
		invoice := invoiceModels[i].ToDomain()
		byID[invoice.ID] = invoice
		if invoice.ProjectID != nil {
			byProject[*invoice.ProjectID] = append(byProject[*invoice.ProjectID], *invoice)
		}
	}
	return byProject, byID, nil
}

func (r *GormReportRepository) loadProjectExpenses(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]billing.Expense, error) {
	var expenseModels []models.ExpenseModel
	if err := r.db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Find(&expenseModels).Error; err != nil {
		return nil, err
	}

	byProject := make(map[uuid.UUID][]billing.Expense)
	for i := range expenseModels {
		expense := expenseModels[i].ToDomainExpense()
		byProject[expense.ProjectID] = append(byProject[expense.ProjectID], *expense)
	}
	return byProject, nil
}

// loadMilestoneInvoiceLinks maps project milestone ids to the invoice
// generated for the payment milestone linked to them, when one exists.
func (r *GormReportRepository) loadMilestoneInvoiceLinks(ctx context.Context, milestoneIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	var links []struct {
		ProjectMilestoneID uuid.UUID
		InvoiceID          uuid.UUID
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentMilestoneModel{}).
		Select("project_milestone_id, invoice_id").
		Where("project_milestone_id IN ? AND invoice_id IS NOT NULL", milestoneIDs).
		Scan(&links).Error; err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]uuid.UUID, len(links))
	for _, link := range links {
		result[link.ProjectMilestoneID] = link.InvoiceID
	}
	return result, nil
}

// Ensure GormReportRepository implements report.Repository
var _ report.Repository = (*GormReportRepository)(nil)
