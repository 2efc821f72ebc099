package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/shared"
	"github.com/termin/backend/internal/domain/shared/valueobject"
)

// PaymentType represents how a quotation is billed
type PaymentType string

const (
	PaymentTypeLumpSum PaymentType = "LUMP_SUM" // single invoice for the full amount
	PaymentTypeTermin  PaymentType = "TERMIN"   // percentage-based installment schedule
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeLumpSum || t == PaymentTypeTermin
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

// QuotationStatus represents the status of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "DRAFT"
	QuotationStatusSent     QuotationStatus = "SENT"
	QuotationStatusAccepted QuotationStatus = "ACCEPTED"
	QuotationStatusRejected QuotationStatus = "REJECTED"
	QuotationStatusExpired  QuotationStatus = "EXPIRED"
)

// IsValid checks if the status is a valid QuotationStatus
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted,
		QuotationStatusRejected, QuotationStatusExpired:
		return true
	}
	return false
}

// Quotation represents a quotation (penawaran) aggregate root.
// Quotation records are authored elsewhere; the payment schedule
// subsystem reads the total and payment type and reacts to total
// changes through amount recalculation.
type Quotation struct {
	shared.BaseAggregateRoot
	QuotationNumber string          `json:"quotation_number"`
	ClientID        uuid.UUID       `json:"client_id"`
	ClientName      string          `json:"client_name"`
	ProjectID       *uuid.UUID      `json:"project_id,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentType     PaymentType     `json:"payment_type"`
	Status          QuotationStatus `json:"status"`
	Remark          string          `json:"remark,omitempty"`
}

// NewQuotation creates a new quotation
func NewQuotation(quotationNumber string, clientID uuid.UUID, clientName string, totalAmount valueobject.Money, paymentType PaymentType) (*Quotation, error) {
	if quotationNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Quotation number is required")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Quotation total must be positive")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid payment type")
	}
	return &Quotation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuotationNumber:   quotationNumber,
		ClientID:          clientID,
		ClientName:        clientName,
		TotalAmount:       totalAmount.Amount(),
		PaymentType:       paymentType,
		Status:            QuotationStatusDraft,
	}, nil
}

// GetTotalMoney returns the total amount as a Money value object
func (q *Quotation) GetTotalMoney() valueobject.Money {
	return valueobject.NewMoneyIDR(q.TotalAmount)
}

// UsesTermin returns true if the quotation is billed via a milestone schedule
func (q *Quotation) UsesTermin() bool {
	return q.PaymentType == PaymentTypeTermin
}

// AssignProject links the quotation to a project
func (q *Quotation) AssignProject(projectID uuid.UUID) {
	q.ProjectID = &projectID
}
