package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// MateraiThreshold is the statutory stamp duty threshold: invoices above
// Rp 5.000.000 require a materai (Indonesian revenue stamp).
var MateraiThreshold = decimal.NewFromInt(5_000_000)

// RequiresMaterai returns true if an invoice for the given amount must
// carry a materai.
func RequiresMaterai(amount valueobject.Money) bool {
	return amount.Amount().GreaterThan(MateraiThreshold)
}

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// Invoice represents an invoice (faktur) aggregate root. Invoices for
// payment milestones are generated by the schedule ledger; payment
// application is owned by collaborators and only consumed here.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber      string          `json:"invoice_number"`
	QuotationID        uuid.UUID       `json:"quotation_id"`
	ProjectID          *uuid.UUID      `json:"project_id,omitempty"`
	PaymentMilestoneID *uuid.UUID      `json:"payment_milestone_id,omitempty"`
	ClientID           uuid.UUID       `json:"client_id"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            time.Time       `json:"due_date"`
	MateraiRequired    bool            `json:"materai_required"`
	Status             InvoiceStatus   `json:"status"`
	Remark             string          `json:"remark,omitempty"`
	Payments           []Payment       `json:"payments,omitempty"`
}

// NewInvoice creates a new issued invoice. The materai flag is derived
// from the amount against the statutory threshold. The invoice number
// is claimed from the per-period sequence when the invoice is persisted.
func NewInvoice(quotationID, clientID uuid.UUID, amount valueobject.Money, dueDate time.Time, createdBy uuid.UUID) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice amount must be positive")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuotationID:       quotationID,
		ClientID:          clientID,
		Amount:            amount.Amount(),
		DueDate:           dueDate,
		MateraiRequired:   RequiresMaterai(amount),
		Status:            InvoiceStatusIssued,
	}
	inv.SetCreatedBy(createdBy)
	return inv, nil
}

// ForMilestone associates the invoice with the payment milestone it bills
func (i *Invoice) ForMilestone(milestoneID uuid.UUID, projectID *uuid.UUID) {
	i.PaymentMilestoneID = &milestoneID
	i.ProjectID = projectID
}

// GetAmountMoney returns the invoice amount as a Money value object
func (i *Invoice) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyIDR(i.Amount)
}

// IsOverdue returns true if the invoice is unpaid past its due date
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceStatusIssued && now.After(i.DueDate)
}

// EarliestPayment returns the earliest payment applied to the invoice,
// or nil if none exists.
func (i *Invoice) EarliestPayment() *Payment {
	var earliest *Payment
	for idx := range i.Payments {
		p := &i.Payments[idx]
		if earliest == nil || p.PaidAt.Before(earliest.PaidAt) {
			earliest = p
		}
	}
	return earliest
}

// HasCompletedPayment returns true if any payment on the invoice completed
func (i *Invoice) HasCompletedPayment() bool {
	for _, p := range i.Payments {
		if p.Status == PaymentStatusCompleted {
			return true
		}
	}
	return false
}

// FormatInvoiceNumber renders the canonical invoice number for a
// per-period sequence value, e.g. INV/2025/02/00042.
func FormatInvoiceNumber(year int, month time.Month, sequence int64) string {
	return fmt.Sprintf("INV/%04d/%02d/%05d", year, int(month), sequence)
}

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment represents a payment applied to an invoice. Payments are
// recorded by collaborators; this subsystem reads them for progress and
// analytics.
type Payment struct {
	shared.BaseEntity
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Status    PaymentStatus   `json:"status"`
	Method    string          `json:"method,omitempty"`
}

// Expense represents a project expense record consumed by analytics
type Expense struct {
	shared.BaseEntity
	ProjectID  uuid.UUID       `json:"project_id"`
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	IncurredAt time.Time       `json:"incurred_at"`
	Remark     string          `json:"remark,omitempty"`
}
