package billing

import (
	"context"

	"github.com/google/uuid"
)

// QuotationRepository defines persistence operations for quotations
type QuotationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Quotation, error)
	Save(ctx context.Context, quotation *Quotation) error
}

// PaymentMilestoneRepository defines persistence operations for payment milestones
type PaymentMilestoneRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentMilestone, error)
	// FindByQuotation returns the quotation's schedule ordered by milestone number.
	FindByQuotation(ctx context.Context, quotationID uuid.UUID) ([]PaymentMilestone, error)
	FindByQuotationAndNumber(ctx context.Context, quotationID uuid.UUID, milestoneNumber int) (*PaymentMilestone, error)
	// SaveWithScheduleGuard persists the milestone inside a transaction that
	// locks the owning quotation row and re-checks the percentage sum, so
	// concurrent schedule writes for one quotation serialize.
	SaveWithScheduleGuard(ctx context.Context, milestone *PaymentMilestone) error
	Save(ctx context.Context, milestone *PaymentMilestone) error
	SaveAll(ctx context.Context, milestones []PaymentMilestone) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// IssueForMilestone claims the next per-period invoice number, inserts
	// the invoice, and stamps its id onto the milestone in one transaction.
	// On return the invoice carries its assigned number.
	IssueForMilestone(ctx context.Context, invoice *Invoice, milestone *PaymentMilestone) error
	Save(ctx context.Context, invoice *Invoice) error
}
