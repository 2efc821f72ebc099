package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// MaxSchedulePercentage is the upper bound for the sum of a quotation's
// milestone percentages.
var MaxSchedulePercentage = decimal.NewFromInt(100)

// DefaultDueDays is the fallback payment term applied when a milestone
// carries neither a due date nor a relative offset.
const DefaultDueDays = 30

// Deliverables is a list of deliverable descriptions stored as JSONB
type Deliverables []string

// Value implements driver.Valuer interface for GORM to store as JSONB
func (d Deliverables) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (d *Deliverables) Scan(value interface{}) error {
	if value == nil {
		*d = Deliverables{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Deliverables: unsupported type")
	}

	if len(bytes) == 0 {
		*d = Deliverables{}
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// PaymentMilestone represents one tranche of a quotation's termin
// pembayaran (installment payment schedule). It is an aggregate root
// owned by exactly one quotation.
type PaymentMilestone struct {
	shared.BaseAggregateRoot
	QuotationID        uuid.UUID       `json:"quotation_id"`
	MilestoneNumber    int             `json:"milestone_number"`
	Name               string          `json:"name"`
	NameID             string          `json:"name_id"` // localized Indonesian name
	Percentage         decimal.Decimal `json:"percentage"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            *time.Time      `json:"due_date,omitempty"`
	DueOffsetDays      *int            `json:"due_offset_days,omitempty"` // days after the previous milestone's due date
	Deliverables       Deliverables    `json:"deliverables"`
	ProjectMilestoneID *uuid.UUID      `json:"project_milestone_id,omitempty"`
	InvoiceID          *uuid.UUID      `json:"invoice_id,omitempty"`
	Remark             string          `json:"remark,omitempty"`
}

// NewPaymentMilestone creates a new payment milestone. The amount is
// computed from the quotation total and the percentage using decimal
// arithmetic.
func NewPaymentMilestone(quotationID uuid.UUID, milestoneNumber int, name, nameID string, percentage decimal.Decimal, quotationTotal valueobject.Money) (*PaymentMilestone, error) {
	if milestoneNumber < 1 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Milestone number must be at least 1")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Milestone name is required")
	}
	if err := validatePercentage(percentage); err != nil {
		return nil, err
	}

	m := &PaymentMilestone{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuotationID:       quotationID,
		MilestoneNumber:   milestoneNumber,
		Name:              name,
		NameID:            nameID,
		Percentage:        percentage,
		Deliverables:      Deliverables{},
	}
	m.RecomputeAmount(quotationTotal)
	return m, nil
}

func validatePercentage(percentage decimal.Decimal) error {
	if !percentage.IsPositive() {
		return shared.NewDomainError("INVALID_INPUT", "Percentage must be greater than 0")
	}
	if percentage.GreaterThan(MaxSchedulePercentage) {
		return shared.NewDomainError("INVALID_INPUT", "Percentage cannot exceed 100")
	}
	return nil
}

// GetAmountMoney returns the milestone amount as a Money value object
func (m *PaymentMilestone) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyIDR(m.Amount)
}

// IsInvoiced returns true if an invoice has been generated for this milestone
func (m *PaymentMilestone) IsInvoiced() bool {
	return m.InvoiceID != nil
}

// RecomputeAmount recalculates the amount from the stored percentage
// against the given quotation total, rounded to 2 decimal places.
func (m *PaymentMilestone) RecomputeAmount(quotationTotal valueobject.Money) {
	m.Amount = quotationTotal.CalculatePercentage(m.Percentage).Round(2).Amount()
}

// ChangePercentage updates the percentage and recomputes the amount.
// Invoiced milestones are immutable.
func (m *PaymentMilestone) ChangePercentage(percentage decimal.Decimal, quotationTotal valueobject.Money) error {
	if m.IsInvoiced() {
		return shared.NewDomainError("CONFLICT", "Milestone already has an invoice and cannot be modified")
	}
	if err := validatePercentage(percentage); err != nil {
		return err
	}
	m.Percentage = percentage
	m.RecomputeAmount(quotationTotal)
	return nil
}

// SetDueDate sets an explicit due date and clears any relative offset
func (m *PaymentMilestone) SetDueDate(dueDate time.Time) error {
	if m.IsInvoiced() {
		return shared.NewDomainError("CONFLICT", "Milestone already has an invoice and cannot be modified")
	}
	m.DueDate = &dueDate
	m.DueOffsetDays = nil
	return nil
}

// SetDueOffset sets a relative offset in days from the previous
// milestone's due date and clears any explicit due date.
func (m *PaymentMilestone) SetDueOffset(days int) error {
	if m.IsInvoiced() {
		return shared.NewDomainError("CONFLICT", "Milestone already has an invoice and cannot be modified")
	}
	if days < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Due offset cannot be negative")
	}
	m.DueOffsetDays = &days
	m.DueDate = nil
	return nil
}

// AttachInvoice stamps the generated invoice onto the milestone.
// Exactly one invoice may ever be attached.
func (m *PaymentMilestone) AttachInvoice(invoiceID uuid.UUID) error {
	if m.IsInvoiced() {
		return shared.NewDomainError("CONFLICT", "Milestone already has an invoice")
	}
	m.InvoiceID = &invoiceID
	return nil
}

// LinkProjectMilestone ties this payment tranche to a delivery milestone
func (m *PaymentMilestone) LinkProjectMilestone(projectMilestoneID uuid.UUID) error {
	if m.IsInvoiced() {
		return shared.NewDomainError("CONFLICT", "Milestone already has an invoice and cannot be modified")
	}
	m.ProjectMilestoneID = &projectMilestoneID
	return nil
}

// CanDelete returns true if the milestone may be removed from the schedule
func (m *PaymentMilestone) CanDelete() bool {
	return !m.IsInvoiced()
}

// ResolveDueDate resolves the invoice due date for this milestone:
// the explicit due date wins; otherwise a relative offset is applied to
// the previous milestone's resolved due date (or to now when the
// previous milestone has none); otherwise now plus DefaultDueDays.
func (m *PaymentMilestone) ResolveDueDate(previous *PaymentMilestone, now time.Time) time.Time {
	if m.DueDate != nil {
		return *m.DueDate
	}
	if m.DueOffsetDays != nil {
		base := now
		if previous != nil && previous.DueDate != nil {
			base = *previous.DueDate
		}
		return base.AddDate(0, 0, *m.DueOffsetDays)
	}
	return now.AddDate(0, 0, DefaultDueDays)
}
