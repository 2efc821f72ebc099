package report

import "context"

// Repository loads analytics snapshots. Implementations eagerly fetch
// the project's invoices, payments and expenses so the analytics engine
// runs without further queries.
type Repository interface {
	FindMilestoneSnapshots(ctx context.Context, filter Filter) ([]MilestoneSnapshot, error)
}
