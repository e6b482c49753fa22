package storage

import (
	"context"
	"sort"
	"time"

	"github.com/centxo/adser-dashboard/internal/models"
)

// RecordFilter selects metric records for a set of teams inside [Start, End].
// Both bounds are inclusive; callers pass End as the last instant of the day.
type RecordFilter struct {
	Teams []string
	Start time.Time
	End   time.Time
}

// Matches reports whether rec falls inside the filter.
func (f RecordFilter) Matches(rec *models.MetricRecord) bool {
	if rec.Date.Before(f.Start) || rec.Date.After(f.End) {
		return false
	}
	for _, team := range f.Teams {
		if rec.Team == team {
			return true
		}
	}
	return false
}

// MetricRecordStore reads the synced per-day sheet rows.
type MetricRecordStore interface {
	// ListRecords returns matching records ordered by date, team, adser.
	ListRecords(ctx context.Context, filter RecordFilter) ([]*models.MetricRecord, error)
}

// ExchangeRateStore reads the synced currency rates.
type ExchangeRateStore interface {
	// LatestExchangeRate returns the most recent rate, or nil when none exist.
	LatestExchangeRate(ctx context.Context) (*models.ExchangeRate, error)
}

// MetricStore is the read side the dashboard needs from a backing store.
type MetricStore interface {
	MetricRecordStore
	ExchangeRateStore
	Health(ctx context.Context) error
}

// sortRecords applies the ListRecords ordering. Null adsers sort first.
func sortRecords(recs []*models.MetricRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.AdserName() < b.AdserName()
	})
}
