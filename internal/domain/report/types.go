package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/project"
)

// DefaultRangeDays is the planned-end-date window applied when a filter
// names neither an explicit window nor a range.
const DefaultRangeDays = 90

// Filter narrows the milestone set fed into analytics. Explicit start
// and end dates win over the named range.
type Filter struct {
	ProjectID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	RangeDays int // 30, 90 or 365; 0 means DefaultRangeDays
}

// Window resolves the effective planned-end-date window for the filter.
func (f Filter) Window(now time.Time) (time.Time, time.Time) {
	if f.StartDate != nil && f.EndDate != nil {
		return *f.StartDate, *f.EndDate
	}
	days := f.RangeDays
	switch days {
	case 30, 90, 365:
	default:
		days = DefaultRangeDays
	}
	return now.AddDate(0, 0, -days), now.AddDate(0, 0, days)
}

// MilestoneSnapshot is the analytics read model: one project milestone
// with its project's invoices (payments preloaded), its project's
// expenses, and the invoice generated for the payment milestone linked
// to this delivery milestone, when one exists.
type MilestoneSnapshot struct {
	Milestone     project.Milestone
	Invoices      []billing.Invoice
	Expenses      []billing.Expense
	LinkedInvoice *billing.Invoice
}
