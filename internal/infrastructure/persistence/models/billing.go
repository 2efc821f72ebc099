package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/billing"
)

// QuotationModel is the persistence model for quotations
type QuotationModel struct {
	AggregateModel
	QuotationNumber string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClientID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientName      string          `gorm:"type:varchar(255);not null"`
	ProjectID       *uuid.UUID      `gorm:"type:uuid;index"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaymentType     string          `gorm:"type:varchar(20);not null"`
	Status          string          `gorm:"type:varchar(20);not null"`
	Remark          string          `gorm:"type:text"`
}

// TableName returns the table name for QuotationModel
func (QuotationModel) TableName() string {
	return "quotations"
}

// ToDomain converts the model to a domain Quotation
func (m *QuotationModel) ToDomain() *billing.Quotation {
	q := &billing.Quotation{
		QuotationNumber: m.QuotationNumber,
		ClientID:        m.ClientID,
		ClientName:      m.ClientName,
		ProjectID:       m.ProjectID,
		TotalAmount:     m.TotalAmount,
		PaymentType:     billing.PaymentType(m.PaymentType),
		Status:          billing.QuotationStatus(m.Status),
		Remark:          m.Remark,
	}
	m.PopulateAggregateRoot(&q.BaseAggregateRoot)
	return q
}

// FromDomainQuotation converts a domain Quotation to the persistence model
func FromDomainQuotation(q *billing.Quotation) *QuotationModel {
	m := &QuotationModel{
		QuotationNumber: q.QuotationNumber,
		ClientID:        q.ClientID,
		ClientName:      q.ClientName,
		ProjectID:       q.ProjectID,
		TotalAmount:     q.TotalAmount,
		PaymentType:     q.PaymentType.String(),
		Status:          string(q.Status),
		Remark:          q.Remark,
	}
	m.FromDomainAggregateRoot(q.BaseAggregateRoot)
	return m
}

// PaymentMilestoneModel is the persistence model for payment milestones
type PaymentMilestoneModel struct {
	AggregateModel
	QuotationID        uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_payment_milestones_quotation_number,priority:1"`
	MilestoneNumber    int                  `gorm:"not null;uniqueIndex:idx_payment_milestones_quotation_number,priority:2"`
	Name               string               `gorm:"type:varchar(255);not null"`
	NameID             string               `gorm:"type:varchar(255)"`
	Percentage         decimal.Decimal      `gorm:"type:decimal(5,2);not null"`
	Amount             decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	DueDate            *time.Time           ``
	DueOffsetDays      *int                 ``
	Deliverables       billing.Deliverables `gorm:"type:jsonb"`
	ProjectMilestoneID *uuid.UUID           `gorm:"type:uuid;index"`
	InvoiceID          *uuid.UUID           `gorm:"type:uuid;index"`
	Remark             string               `gorm:"type:text"`
}

// TableName returns the table name for PaymentMilestoneModel
func (PaymentMilestoneModel) TableName() string {
	return "payment_milestones"
}

// ToDomain converts the model to a domain PaymentMilestone
func (m *PaymentMilestoneModel) ToDomain() *billing.PaymentMilestone {
	pm := &billing.PaymentMilestone{
		QuotationID:        m.QuotationID,
		MilestoneNumber:    m.MilestoneNumber,
		Name:               m.Name,
		NameID:             m.NameID,
		Percentage:         m.Percentage,
		Amount:             m.Amount,
		DueDate:            m.DueDate,
		DueOffsetDays:      m.DueOffsetDays,
		Deliverables:       m.Deliverables,
		ProjectMilestoneID: m.ProjectMilestoneID,
		InvoiceID:          m.InvoiceID,
		Remark:             m.Remark,
	}
	m.PopulateAggregateRoot(&pm.BaseAggregateRoot)
	return pm
}

// FromDomainPaymentMilestone converts a domain PaymentMilestone to the persistence model
func FromDomainPaymentMilestone(pm *billing.PaymentMilestone) *PaymentMilestoneModel {
	m := &PaymentMilestoneModel{
		QuotationID:        pm.QuotationID,
		MilestoneNumber:    pm.MilestoneNumber,
		Name:               pm.Name,
		NameID:             pm.NameID,
		Percentage:         pm.Percentage,
		Amount:             pm.Amount,
		DueDate:            pm.DueDate,
		DueOffsetDays:      pm.DueOffsetDays,
		Deliverables:       pm.Deliverables,
		ProjectMilestoneID: pm.ProjectMilestoneID,
		InvoiceID:          pm.InvoiceID,
		Remark:             pm.Remark,
	}
	m.FromDomainAggregateRoot(pm.BaseAggregateRoot)
	return m
}

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber      string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	QuotationID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProjectID          *uuid.UUID      `gorm:"type:uuid;index"`
	PaymentMilestoneID *uuid.UUID      `gorm:"type:uuid;index"`
	ClientID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DueDate            time.Time       `gorm:"not null"`
	MateraiRequired    bool            `gorm:"not null;default:false"`
	Status             string          `gorm:"type:varchar(20);not null"`
	Remark             string          `gorm:"type:text"`
	Payments           []PaymentModel  `gorm:"foreignKey:InvoiceID"`
}

// TableName returns the table name for InvoiceModel
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber:      m.InvoiceNumber,
		QuotationID:        m.QuotationID,
		ProjectID:          m.ProjectID,
		PaymentMilestoneID: m.PaymentMilestoneID,
		ClientID:           m.ClientID,
		Amount:             m.Amount,
		DueDate:            m.DueDate,
		MateraiRequired:    m.MateraiRequired,
		Status:             billing.InvoiceStatus(m.Status),
		Remark:             m.Remark,
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)
	if len(m.Payments) > 0 {
		inv.Payments = make([]billing.Payment, len(m.Payments))
		for i := range m.Payments {
			inv.Payments[i] = *m.Payments[i].ToDomainPayment()
		}
	}
	return inv
}

// FromDomainInvoice converts a domain Invoice to the persistence model.
// Payments are read-only here and never written back.
func FromDomainInvoice(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber:      inv.InvoiceNumber,
		QuotationID:        inv.QuotationID,
		ProjectID:          inv.ProjectID,
		PaymentMilestoneID: inv.PaymentMilestoneID,
		ClientID:           inv.ClientID,
		Amount:             inv.Amount,
		DueDate:            inv.DueDate,
		MateraiRequired:    inv.MateraiRequired,
		Status:             string(inv.Status),
		Remark:             inv.Remark,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return m
}

// PaymentModel is the persistence model for payments applied to invoices
type PaymentModel struct {
	BaseModel
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaidAt    time.Time       `gorm:"not null"`
	Status    string          `gorm:"type:varchar(20);not null"`
	Method    string          `gorm:"type:varchar(50)"`
}

// TableName returns the table name for PaymentModel
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomainPayment converts the model to a domain Payment
func (m *PaymentModel) ToDomainPayment() *billing.Payment {
	return &billing.Payment{
		BaseEntity: m.ToDomain(),
		InvoiceID:  m.InvoiceID,
		Amount:     m.Amount,
		PaidAt:     m.PaidAt,
		Status:     billing.PaymentStatus(m.Status),
		Method:     m.Method,
	}
}

// FromDomainPayment converts a domain Payment to the persistence model
func FromDomainPayment(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		InvoiceID: p.InvoiceID,
		Amount:    p.Amount,
		PaidAt:    p.PaidAt,
		Status:    string(p.Status),
		Method:    p.Method,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// ExpenseModel is the persistence model for project expenses
type ExpenseModel struct {
	BaseModel
	ProjectID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Category   string          `gorm:"type:varchar(100);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IncurredAt time.Time       `gorm:"not null"`
	Remark     string          `gorm:"type:text"`
}

// TableName returns the table name for ExpenseModel
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomainExpense converts the model to a domain Expense
func (m *ExpenseModel) ToDomainExpense() *billing.Expense {
	return &billing.Expense{
		BaseEntity: m.ToDomain(),
		ProjectID:  m.ProjectID,
		Category:   m.Category,
		Amount:     m.Amount,
		IncurredAt: m.IncurredAt,
		Remark:     m.Remark,
	}
}

// FromDomainExpense converts a domain Expense to the persistence model
func FromDomainExpense(e *billing.Expense) *ExpenseModel {
	m := &ExpenseModel{
		ProjectID:  e.ProjectID,
		Category:   e.Category,
		Amount:     e.Amount,
		IncurredAt: e.IncurredAt,
		Remark:     e.Remark,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// InvoiceSequenceModel holds the per-period invoice number counter.
// The row is claimed under a row lock so concurrent invoice generation
// never hands out the same number.
type InvoiceSequenceModel struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false"`
	Month     int   `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64 `gorm:"not null;default:0"`
}

// TableName returns the table name for InvoiceSequenceModel
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}
