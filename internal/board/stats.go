package board

import (
	"math"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

// RevenueFunc prices a single event. The calculator is a collaborator: the
// board only folds its output, so billing rules can change without touching
// queue code.
type RevenueFunc func(ev *models.Event) models.Revenue

// DefaultRevenue prorates the per-student package price over the event's
// share of the package duration and applies the commission rate.
func DefaultRevenue(ev *models.Event) models.Revenue {
	if ev.PricePerStudent <= 0 || len(ev.Students) == 0 {
		return models.Revenue{}
	}
	share := 1.0
	if ev.PackageDuration > 0 {
		share = float64(ev.Duration) / float64(ev.PackageDuration)
	}
	revenue := ev.PricePerStudent * float64(len(ev.Students)) * share
	commission := revenue * ev.CommissionRate
	return models.Revenue{
		Revenue:    revenue,
		Commission: commission,
		Profit:     revenue - commission,
	}
}

// StatsOptions scopes the fold.
type StatsOptions struct {
	// IncludeCancelled counts cancelled events too; by default they are
	// excluded from every aggregate.
	IncludeCancelled bool
	// CompletedOnly restricts the fold to completed events.
	CompletedOnly bool
}

// Stats folds one or many queues into board aggregates. It is a pure read
// over the ordered views; hours and money round to two decimals at the
// boundary, never inside the accumulation.
func Stats(calc RevenueFunc, opts StatsOptions, queues ...*TeacherQueue) models.BoardStats {
	if calc == nil {
		calc = DefaultRevenue
	}
	var stats models.BoardStats
	var minutes int
	for _, queue := range queues {
		for _, ev := range queue.Events(EventsOptions{}) {
			if !opts.IncludeCancelled && ev.Status == models.EventStatusCancelled {
				continue
			}
			if opts.CompletedOnly && ev.Status != models.EventStatusCompleted {
				continue
			}
			stats.EventCount++
			stats.StudentCount += len(ev.Students)
			minutes += ev.Duration
			rev := calc(ev)
			stats.TotalRevenue.Revenue += rev.Revenue
			stats.TotalRevenue.Commission += rev.Commission
			stats.TotalRevenue.Profit += rev.Profit
		}
	}
	stats.TotalHours = round2(float64(minutes) / 60)
	stats.TotalRevenue.Revenue = round2(stats.TotalRevenue.Revenue)
	stats.TotalRevenue.Commission = round2(stats.TotalRevenue.Commission)
	stats.TotalRevenue.Profit = round2(stats.TotalRevenue.Profit)
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
