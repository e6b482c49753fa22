package dashboard

import (
	"time"

	"github.com/centxo/adser-dashboard/internal/config"
)

// View selects how records are bucketed.
type View string

const (
	ViewAll   View = "all"
	ViewTeam  View = "team"
	ViewAdser View = "adser"
)

// Period is the time partition of the chart endpoint.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

const dateLayout = "2006-01-02"

// Query carries the raw request parameters shared by both endpoints.
type Query struct {
	StartDate string
	EndDate   string
	Tab       string
	View      View
	Period    Period
}

// WithDefaults fills in the optional view and period.
func (q Query) WithDefaults() Query {
	if q.View == "" {
		q.View = ViewTeam
	}
	if q.Period == "" {
		q.Period = PeriodDaily
	}
	return q
}

// resolvedQuery is a validated Query bound to its tab and absolute bounds.
type resolvedQuery struct {
	Query
	tab   config.Tab
	start time.Time
	end   time.Time
}

func (q Query) checkRequired() error {
	if q.StartDate == "" || q.EndDate == "" || q.Tab == "" {
		return requestErrorf(ErrMissingParams, "Missing required parameters: startDate, endDate, tab")
	}
	return nil
}

func (q Query) checkView() error {
	switch q.View {
	case ViewAll, ViewTeam, ViewAdser:
		return nil
	}
	return requestErrorf(ErrInvalidView, "Invalid view: %s", q.View)
}

func (q Query) checkPeriod() error {
	switch q.Period {
	case PeriodDaily, PeriodMonthly:
		return nil
	}
	return requestErrorf(ErrInvalidPeriod, "Invalid period: %s", q.Period)
}

// dayBounds parses the inclusive calendar-day range in loc. end is the last
// millisecond of the end day.
func dayBounds(startDate, endDate string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, requestErrorf(ErrInvalidDate, "Invalid date format, expected yyyy-MM-dd")
	}
	endDay, err := time.ParseInLocation(dateLayout, endDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, requestErrorf(ErrInvalidDate, "Invalid date format, expected yyyy-MM-dd")
	}
	if endDay.Before(start) {
		return time.Time{}, time.Time{}, requestErrorf(ErrInvalidDateRange, "startDate must not be after endDate")
	}
	end := endDay.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}
