package dashboard

import (
	"context"
	"time"
)

// AggregatedRow is one bucket of the data endpoint.
type AggregatedRow struct {
	Team string `json:"team"`
	Date string `json:"date"`
	Counters
	DayCount int `json:"dayCount"`
	KPIs
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DataResponse is the body of GET /api/dashboard/data.
type DataResponse struct {
	Data         []AggregatedRow `json:"data"`
	ExchangeRate float64         `json:"exchangeRate"`
	Count        int             `json:"count"`
	Timestamp    time.Time       `json:"timestamp"`
	DateRange    DateRange       `json:"dateRange"`
}

// GetData buckets the tab's records for the range by q.View and annotates
// every bucket with its KPIs.
func (s *Service) GetData(ctx context.Context, q Query) (*DataResponse, error) {
	rq, err := s.resolve(q, false)
	if err != nil {
		return nil, err
	}

	records, rate, err := s.load(ctx, rq)
	if err != nil {
		return nil, err
	}

	buckets := newBucketSet()
	switch rq.View {
	case ViewTeam:
		for _, team := range rq.tab.Teams {
			buckets.get(team)
		}
	case ViewAll:
		buckets.get(TotalLabel)
	}

	k := newKeyer(rq.View, rq.tab, records)
	for _, r := range records {
		buckets.get(k.key(r)).add(r, s.opts.Location)
	}

	rows := make([]AggregatedRow, 0, len(buckets.list()))
	for _, b := range buckets.list() {
		date := rq.start
		if !b.FirstDate.IsZero() {
			date = b.FirstDate
		}
		rows = append(rows, AggregatedRow{
			Team:     b.Key,
			Date:     date.Format(dateLayout),
			Counters: b.Counters,
			DayCount: b.DayCount(),
			KPIs:     ComputeKPIs(b.Spend, b.Deposit, b.Message, b.TurnoverAdser, rate),
		})
	}

	s.recordAggregated("data", rq.Tab, len(records))

	return &DataResponse{
		Data:         rows,
		ExchangeRate: rate,
		Count:        len(rows),
		Timestamp:    s.opts.Now().UTC(),
		DateRange: DateRange{
			Start: rq.StartDate,
			End:   rq.EndDate,
		},
	}, nil
}
