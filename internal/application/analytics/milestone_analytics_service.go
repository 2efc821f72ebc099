package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/termin/backend/internal/domain/billing"
	"github.com/termin/backend/internal/domain/project"
	"github.com/termin/backend/internal/domain/report"
)

// ReportCacheTTL bounds how stale a cached analytics report may be.
const ReportCacheTTL = 5 * time.Minute

// uninvoicedRiskFactor discounts forecasted inflow for milestones whose
// project has no invoice yet.
var uninvoicedRiskFactor = decimal.NewFromFloat(0.9)

// ReportCache caches rendered analytics reports. A miss returns
// (nil, nil). The redis implementation lives in infrastructure/cache.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// MilestoneAnalyticsService aggregates project milestones, invoices,
// payments and expenses into payment-cycle, revenue-recognition,
// profitability and cash-flow reports. Reads only, no side effects.
type MilestoneAnalyticsService struct {
	snapshotRepo report.Repository
	cache        ReportCache
	now          func() time.Time
}

// NewMilestoneAnalyticsService creates a new MilestoneAnalyticsService.
// The cache may be nil; reports are then computed on every call.
func NewMilestoneAnalyticsService(snapshotRepo report.Repository, cache ReportCache) *MilestoneAnalyticsService {
	return &MilestoneAnalyticsService{
		snapshotRepo: snapshotRepo,
		cache:        cache,
		now:          time.Now,
	}
}

// ===================== Responses =====================

// PhaseProfitability summarizes revenue and cost for milestones grouped
// by name.
type PhaseProfitability struct {
	Phase     string          `json:"phase"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cost      decimal.Decimal `json:"cost"`
	Profit    decimal.Decimal `json:"profit"`
	MarginPct float64         `json:"margin_pct"`
}

// CashFlowBucket holds inflow and outflow figures for one calendar month
type CashFlowBucket struct {
	Period           string          `json:"period"` // YYYY-MM of the planned end date
	ExpectedInflow   decimal.Decimal `json:"expected_inflow"`
	ActualInflow     decimal.Decimal `json:"actual_inflow"`
	ForecastedInflow decimal.Decimal `json:"forecasted_inflow"`
	ExpenseOutflow   decimal.Decimal `json:"expense_outflow"`
	NetCashFlow      decimal.Decimal `json:"net_cash_flow"`
}

// MilestoneMetric is the per-milestone row of the report
type MilestoneMetric struct {
	MilestoneID     uuid.UUID `json:"milestone_id"`
	MilestoneNumber int       `json:"milestone_number"`
	Name            string    `json:"name"`
	PlannedEndDate  time.Time `json:"planned_end_date"`
	CompletionPct   int       `json:"completion_pct"`
	DelayDays       int       `json:"delay_days"`
	PaymentStatus   string    `json:"payment_status"` // PAID, INVOICED, OVERDUE or PENDING
	DaysToPayment   *int      `json:"days_to_payment,omitempty"`
}

// AnalyticsResponse is the aggregate milestone report
type AnalyticsResponse struct {
	GeneratedAt             time.Time            `json:"generated_at"`
	WindowStart             time.Time            `json:"window_start"`
	WindowEnd               time.Time            `json:"window_end"`
	MilestoneCount          int                  `json:"milestone_count"`
	TotalPlannedRevenue     decimal.Decimal      `json:"total_planned_revenue"`
	TotalRecognizedRevenue  decimal.Decimal      `json:"total_recognized_revenue"`
	TotalExpenses           decimal.Decimal      `json:"total_expenses"`
	AveragePaymentCycleDays float64              `json:"average_payment_cycle_days"`
	OnTimePaymentRate       float64              `json:"on_time_payment_rate"`
	RevenueRecognitionRate  float64              `json:"revenue_recognition_rate"`
	ProfitabilityByPhase    []PhaseProfitability `json:"profitability_by_phase"`
	CashFlowForecast        []CashFlowBucket     `json:"cash_flow_forecast"`
	MilestoneMetrics        []MilestoneMetric    `json:"milestone_metrics"`
}

// ===================== Operations =====================

// GetAnalytics builds the milestone report for the filter, serving a
// cached rendition when one is fresh.
func (s *MilestoneAnalyticsService) GetAnalytics(ctx context.Context, filter report.Filter) (*AnalyticsResponse, error) {
	key := cacheKey(filter, s.now())
	if s.cache != nil {
		if payload, err := s.cache.Get(ctx, key); err == nil && payload != nil {
			var cached AnalyticsResponse
			if err := json.Unmarshal(payload, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	snapshots, err := s.snapshotRepo.FindMilestoneSnapshots(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	windowStart, windowEnd := filter.Window(now)
	resp := &AnalyticsResponse{
		GeneratedAt:            now,
		WindowStart:            windowStart,
		WindowEnd:              windowEnd,
		MilestoneCount:         len(snapshots),
		TotalPlannedRevenue:    decimal.Zero,
		TotalRecognizedRevenue: decimal.Zero,
		TotalExpenses:          decimal.Zero,
	}

	invoices := dedupeInvoices(snapshots)
	resp.AveragePaymentCycleDays = averagePaymentCycle(invoices)
	resp.OnTimePaymentRate = onTimePaymentRate(invoices)

	for i := range snapshots {
		m := &snapshots[i].Milestone
		resp.TotalPlannedRevenue = resp.TotalPlannedRevenue.Add(m.PlannedRevenue)
		resp.TotalRecognizedRevenue = resp.TotalRecognizedRevenue.Add(m.RecognizedRevenue)
	}
	resp.RevenueRecognitionRate = ratePct(resp.TotalRecognizedRevenue, resp.TotalPlannedRevenue)

	for _, expense := range dedupeExpenses(snapshots) {
		resp.TotalExpenses = resp.TotalExpenses.Add(expense.Amount)
	}

	resp.ProfitabilityByPhase = profitabilityByPhase(snapshots)
	resp.CashFlowForecast = cashFlowForecast(snapshots)
	resp.MilestoneMetrics = milestoneMetrics(snapshots, now)

	if s.cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			_ = s.cache.Set(ctx, key, payload, ReportCacheTTL)
		}
	}
	return resp, nil
}

// ===================== Aggregations =====================

// dedupeInvoices flattens snapshot invoices into a unique set. Snapshots
// of milestones in the same project carry the same project invoices.
func dedupeInvoices(snapshots []report.MilestoneSnapshot) []*billing.Invoice {
	seen := map[uuid.UUID]bool{}
	var out []*billing.Invoice
	for i := range snapshots {
		for j := range snapshots[i].Invoices {
			inv := &snapshots[i].Invoices[j]
			if seen[inv.ID] {
				continue
			}
			seen[inv.ID] = true
			out = append(out, inv)
		}
	}
	return out
}

// averagePaymentCycle is the mean of (earliest payment date - invoice
// creation date) in days over invoices with at least one payment.
// Negative differences are excluded. Returns 0 with no qualifying
// invoices.
func averagePaymentCycle(invoices []*billing.Invoice) float64 {
	var totalDays, count float64
	for _, inv := range invoices {
		earliest := inv.EarliestPayment()
		if earliest == nil {
			continue
		}
		days := earliest.PaidAt.Sub(inv.CreatedAt).Hours() / 24
		if days < 0 {
			continue
		}
		totalDays += days
		count++
	}
	if count == 0 {
		return 0
	}
	return totalDays / count
}

// onTimePaymentRate is the share of paid invoices whose earliest payment
// landed on or before the due date. With nothing to judge the rate is
// optimistically 100.
func onTimePaymentRate(invoices []*billing.Invoice) float64 {
	var onTime, qualifying float64
	for _, inv := range invoices {
		earliest := inv.EarliestPayment()
		if earliest == nil {
			continue
		}
		qualifying++
		if !earliest.PaidAt.After(inv.DueDate) {
			onTime++
		}
	}
	if qualifying == 0 {
		return 100
	}
	return onTime / qualifying * 100
}

func ratePct(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	rate, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Float64()
	return rate
}

// profitabilityByPhase groups milestones by name, sums revenue
// (recognized, falling back to planned) and cost (actual, falling back
// to estimated) per group, and recomputes margin from the sums.
func profitabilityByPhase(snapshots []report.MilestoneSnapshot) []PhaseProfitability {
	type phaseAgg struct {
		revenue decimal.Decimal
		cost    decimal.Decimal
	}
	groups := map[string]*phaseAgg{}
	var order []string
	for i := range snapshots {
		m := &snapshots[i].Milestone

		revenue := m.RecognizedRevenue
		if revenue.IsZero() {
			revenue = m.PlannedRevenue
		}
		cost := m.ActualCost
		if cost.IsZero() {
			cost = m.EstimatedCost
		}

		agg, ok := groups[m.Name]
		if !ok {
			agg = &phaseAgg{revenue: decimal.Zero, cost: decimal.Zero}
			groups[m.Name] = agg
			order = append(order, m.Name)
		}
		agg.revenue = agg.revenue.Add(revenue)
		agg.cost = agg.cost.Add(cost)
	}

	sort.Strings(order)
	result := make([]PhaseProfitability, 0, len(order))
	for _, name := range order {
		agg := groups[name]
		profit := agg.revenue.Sub(agg.cost)
		result = append(result, PhaseProfitability{
			Phase:     name,
			Revenue:   agg.revenue,
			Cost:      agg.cost,
			Profit:    profit,
			MarginPct: ratePct(profit, agg.revenue),
		})
	}
	return result
}

// cashFlowForecast buckets planned revenue by the calendar month of the
// planned end date and project expenses by the month they were incurred.
// Actual inflow counts milestones whose project has a completed payment;
// forecasted inflow discounts uninvoiced projects by a flat 10%. Net
// cash flow is forecasted inflow minus expense outflow.
func cashFlowForecast(snapshots []report.MilestoneSnapshot) []CashFlowBucket {
	buckets := map[string]*CashFlowBucket{}
	emptyBucket := func(period string) *CashFlowBucket {
		return &CashFlowBucket{
			Period:           period,
			ExpectedInflow:   decimal.Zero,
			ActualInflow:     decimal.Zero,
			ForecastedInflow: decimal.Zero,
			ExpenseOutflow:   decimal.Zero,
			NetCashFlow:      decimal.Zero,
		}
	}

	for i := range snapshots {
		snap := &snapshots[i]
		m := &snap.Milestone

		period := m.PlannedEndDate.Format("2006-01")
		bucket, ok := buckets[period]
		if !ok {
			bucket = emptyBucket(period)
			buckets[period] = bucket
		}

		bucket.ExpectedInflow = bucket.ExpectedInflow.Add(m.PlannedRevenue)

		if projectHasCompletedPayment(snap.Invoices) {
			bucket.ActualInflow = bucket.ActualInflow.Add(m.PlannedRevenue)
		}
		if len(snap.Invoices) > 0 {
			bucket.ForecastedInflow = bucket.ForecastedInflow.Add(m.PlannedRevenue)
		} else {
			bucket.ForecastedInflow = bucket.ForecastedInflow.Add(m.PlannedRevenue.Mul(uninvoicedRiskFactor))
		}
	}

	for _, expense := range dedupeExpenses(snapshots) {
		period := expense.IncurredAt.Format("2006-01")
		bucket, ok := buckets[period]
		if !ok {
			bucket = emptyBucket(period)
			buckets[period] = bucket
		}
		bucket.ExpenseOutflow = bucket.ExpenseOutflow.Add(expense.Amount)
	}

	periods := make([]string, 0, len(buckets))
	for period := range buckets {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	result := make([]CashFlowBucket, 0, len(periods))
	for _, period := range periods {
		bucket := buckets[period]
		bucket.NetCashFlow = bucket.ForecastedInflow.Sub(bucket.ExpenseOutflow)
		result = append(result, *bucket)
	}
	return result
}

// dedupeExpenses flattens snapshot expenses into a unique set. Snapshots
// of milestones in the same project carry the same project expenses.
func dedupeExpenses(snapshots []report.MilestoneSnapshot) []*billing.Expense {
	seen := map[uuid.UUID]bool{}
	var out []*billing.Expense
	for i := range snapshots {
		for j := range snapshots[i].Expenses {
			exp := &snapshots[i].Expenses[j]
			if seen[exp.ID] {
				continue
			}
			seen[exp.ID] = true
			out = append(out, exp)
		}
	}
	return out
}

func projectHasCompletedPayment(invoices []billing.Invoice) bool {
	for i := range invoices {
		if invoices[i].HasCompletedPayment() {
			return true
		}
	}
	return false
}

// milestoneMetrics derives a payment status per milestone from its
// linked invoice: PAID when that invoice has a completed payment,
// INVOICED when it merely exists, OVERDUE when a finished milestone has
// slipped past its planned end without an invoice, PENDING otherwise.
func milestoneMetrics(snapshots []report.MilestoneSnapshot, now time.Time) []MilestoneMetric {
	result := make([]MilestoneMetric, 0, len(snapshots))
	for i := range snapshots {
		snap := &snapshots[i]
		m := &snap.Milestone

		metric := MilestoneMetric{
			MilestoneID:     m.ID,
			MilestoneNumber: m.MilestoneNumber,
			Name:            m.Name,
			PlannedEndDate:  m.PlannedEndDate,
			CompletionPct:   m.CompletionPct,
			DelayDays:       m.DelayDays,
			PaymentStatus:   "PENDING",
		}

		switch {
		case snap.LinkedInvoice != nil && snap.LinkedInvoice.HasCompletedPayment():
			metric.PaymentStatus = "PAID"
		case snap.LinkedInvoice != nil:
			metric.PaymentStatus = "INVOICED"
		case milestoneFinished(m.Status) && m.PlannedEndDate.Before(now):
			metric.PaymentStatus = "OVERDUE"
		}

		if snap.LinkedInvoice != nil {
			if earliest := snap.LinkedInvoice.EarliestPayment(); earliest != nil {
				days := int(earliest.PaidAt.Sub(snap.LinkedInvoice.CreatedAt).Hours() / 24)
				metric.DaysToPayment = &days
			}
		}

		result = append(result, metric)
	}
	return result
}

func milestoneFinished(status project.MilestoneStatus) bool {
	return status == project.MilestoneStatusCompleted || status == project.MilestoneStatusAccepted
}

func cacheKey(filter report.Filter, now time.Time) string {
	projectKey := "all"
	if filter.ProjectID != nil {
		projectKey = filter.ProjectID.String()
	}
	start, end := filter.Window(now)
	return fmt.Sprintf("analytics:milestones:%s:%s:%s", projectKey,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}
