// Package analytics computes a salon's dashboard metrics from its
// appointments, stylists and reviews.
package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"salonbook/appointment"
	"salonbook/docstore"
)

// RevenueStatuses are the appointment statuses that count towards revenue
// and appointment totals.
var RevenueStatuses = []string{string(appointment.StatusConfirmed), string(appointment.StatusCompleted)}

// Snapshot is computed fresh on every request and never stored.
type Snapshot struct {
	DailyRevenue      float64
	WeeklyRevenue     float64
	MonthlyRevenue    float64
	AppointmentsToday int
	AppointmentsWeek  int
	ClientsTotal      int
	StylistsActive    int
	AverageRating     float64
}

// Window is an inclusive time range.
type Window struct {
	From time.Time
	To   time.Time
}

// Windows are the ranges a snapshot is computed over.
type Windows struct {
	Today Window
	Week  Window
	Month Window
}

// WindowsAt derives the windows for the calendar day now falls on in now's
// location. Bounds are expressed like stored appointment dates, as UTC
// midnights of calendar days. Week and month start 7 days or one month back
// and end with today.
func WindowsAt(now time.Time) Windows {
	today := appointment.Day(now)
	end := today.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return Windows{
		Today: Window{From: today, To: end},
		Week:  Window{From: today.AddDate(0, 0, -7), To: end},
		Month: Window{From: today.AddDate(0, -1, 0), To: end},
	}
}

// Aggregator is the Analytics Aggregator.
type Aggregator struct {
	store docstore.Reader
}

// NewAggregator creates an aggregator reading from store.
func NewAggregator(store docstore.Reader) *Aggregator {
	return &Aggregator{store: store}
}

// Compute runs the six sub-queries concurrently and reduces them into a
// Snapshot. The first failing query cancels the rest and fails the call.
func (a *Aggregator) Compute(ctx context.Context, salonID string, now time.Time) (Snapshot, error) {
	w := WindowsAt(now)
	bySalon := docstore.Where("salonId", docstore.Eq, salonID)
	revenueIn := func(win Window) docstore.Query {
		return bySalon.
			And("date", docstore.Gte, win.From).
			And("date", docstore.Lte, win.To).
			And("status", docstore.In, RevenueStatuses)
	}

	var today, week, month, stylists, appointments, reviews []docstore.Document
	g, gctx := errgroup.WithContext(ctx)
	run := func(dst *[]docstore.Document, name, collection string, q docstore.Query) {
		g.Go(func() error {
			docs, err := a.store.Query(gctx, collection, q)
			if err != nil {
				return fmt.Errorf("analytics: %s: %w", name, err)
			}
			*dst = docs
			return nil
		})
	}
	run(&today, "today", docstore.Appointments, revenueIn(w.Today))
	run(&week, "week", docstore.Appointments, revenueIn(w.Week))
	run(&month, "month", docstore.Appointments, revenueIn(w.Month))
	run(&stylists, "stylists", docstore.Stylists, bySalon)
	run(&appointments, "clients", docstore.Appointments, bySalon.Ordered("clientId", false))
	run(&reviews, "reviews", docstore.Reviews, bySalon)
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		DailyRevenue:      revenue(today),
		WeeklyRevenue:     revenue(week),
		MonthlyRevenue:    revenue(month),
		AppointmentsToday: len(today),
		AppointmentsWeek:  len(week),
		ClientsTotal:      distinctClients(appointments),
		StylistsActive:    len(stylists),
		AverageRating:     averageRating(reviews),
	}, nil
}

func revenue(docs []docstore.Document) float64 {
	var sum float64
	for _, d := range docs {
		sum += d.Fields.Float("servicePrice")
	}
	return sum
}

func distinctClients(docs []docstore.Document) int {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if id := d.Fields.String("clientId"); id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func averageRating(docs []docstore.Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	var sum float64
	for _, d := range docs {
		sum += d.Fields.Float("rating")
	}
	return sum / float64(len(docs))
}
