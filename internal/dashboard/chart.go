package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/centxo/adser-dashboard/internal/models"
)

// SeriesPoint is one bucket's values within a chart interval.
type SeriesPoint struct {
	CPM            float64 `json:"cpm"`
	CostPerDeposit float64 `json:"costPerDeposit"`
	DepositAmount  float64 `json:"depositAmount"`
	DollarPerCover float64 `json:"dollarPerCover"`
	Spend          float64 `json:"spend"`
	Deposit        float64 `json:"deposit"`
	TurnoverAdser  float64 `json:"turnoverAdser"`
}

// NamedPoint pairs a bucket key with its point.
type NamedPoint struct {
	Key   string
	Point SeriesPoint
}

// ChartInterval is one day or month of the chart endpoint. Buckets are
// emitted as top-level keys next to period, date and depositAmount.
type ChartInterval struct {
	Period        string
	Date          string
	DepositAmount float64
	Series        []NamedPoint
}

// Point returns the series point of a bucket key.
func (c ChartInterval) Point(key string) (SeriesPoint, bool) {
	for _, p := range c.Series {
		if p.Key == key {
			return p.Point, true
		}
	}
	return SeriesPoint{}, false
}

var reservedIntervalKeys = map[string]bool{
	"period":        true,
	"date":          true,
	"depositAmount": true,
}

// MarshalJSON writes the interval as a flat object, buckets in first-seen order.
func (c ChartInterval) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, v interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	if err := write("period", c.Period); err != nil {
		return nil, err
	}
	if err := write("date", c.Date); err != nil {
		return nil, err
	}
	if err := write("depositAmount", c.DepositAmount); err != nil {
		return nil, err
	}
	for _, p := range c.Series {
		if reservedIntervalKeys[p.Key] {
			continue
		}
		if err := write(p.Key, p.Point); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ChartResponse is the body of GET /api/dashboard/charts.
type ChartResponse struct {
	Success bool            `json:"success"`
	Data    []ChartInterval `json:"data"`
	Period  Period          `json:"period"`
	View    View            `json:"view"`
}

type interval struct {
	start time.Time
	label string
	key   string
}

// buildIntervals lists the days or months covering [start, end], dropping
// those that begin after today.
func buildIntervals(start, end, now time.Time, period Period, loc *time.Location) []interval {
	today := startOfDay(now, loc)

	var out []interval
	switch period {
	case PeriodMonthly:
		for m := startOfMonth(start, loc); !m.After(end); m = m.AddDate(0, 1, 0) {
			if m.After(today) {
				break
			}
			out = append(out, interval{start: m, label: monthLabel(m), key: m.Format("2006-01")})
		}
	default:
		for d := startOfDay(start, loc); !d.After(end); d = d.AddDate(0, 0, 1) {
			if d.After(today) {
				break
			}
			out = append(out, interval{start: d, label: dayLabel(d), key: d.Format(dateLayout)})
		}
	}
	return out
}

func intervalKey(t time.Time, period Period, loc *time.Location) string {
	t = t.In(loc)
	if period == PeriodMonthly {
		return t.Format("2006-01")
	}
	return t.Format(dateLayout)
}

type running struct {
	spend         float64
	turnoverAdser float64
}

// GetCharts builds the per-interval series for the tab's records. Under the
// daily period dollarPerCover is computed on each key's running totals;
// every other value uses the interval's own sums.
func (s *Service) GetCharts(ctx context.Context, q Query) (*ChartResponse, error) {
	rq, err := s.resolve(q, s.opts.LegacyChartTab)
	if err != nil {
		return nil, err
	}
	if rq == nil {
		q = q.WithDefaults()
		return &ChartResponse{Success: true, Data: []ChartInterval{}, Period: q.Period, View: q.View}, nil
	}

	records, rate, err := s.load(ctx, rq)
	if err != nil {
		return nil, err
	}

	loc := s.opts.Location
	bySlice := make(map[string][]*models.MetricRecord)
	for _, r := range records {
		k := intervalKey(r.Date, rq.Period, loc)
		bySlice[k] = append(bySlice[k], r)
	}

	k := newKeyer(rq.View, rq.tab, records)
	cumulative := make(map[string]*running)

	intervals := buildIntervals(rq.start, rq.end, s.opts.Now(), rq.Period, loc)
	data := make([]ChartInterval, 0, len(intervals))
	for _, iv := range intervals {
		buckets := newBucketSet()
		for _, r := range bySlice[iv.key] {
			buckets.get(k.key(r)).add(r, loc)
		}

		ci := ChartInterval{
			Period: iv.label,
			Date:   iv.start.Format(dateLayout),
			Series: make([]NamedPoint, 0, len(buckets.list())),
		}
		for _, b := range buckets.list() {
			kpis := ComputeKPIs(b.Spend, b.Deposit, b.Message, b.TurnoverAdser, rate)

			if rq.Period == PeriodDaily {
				run, ok := cumulative[b.Key]
				if !ok {
					run = &running{}
					cumulative[b.Key] = run
				}
				run.spend += b.Spend
				run.turnoverAdser += b.TurnoverAdser
				kpis.DollarPerCover = DollarPerCover(run.turnoverAdser, run.spend, rate)
			}

			ci.DepositAmount += b.Deposit
			ci.Series = append(ci.Series, NamedPoint{
				Key: b.Key,
				Point: SeriesPoint{
					CPM:            kpis.CPM,
					CostPerDeposit: kpis.CostPerDeposit,
					DepositAmount:  b.Deposit,
					DollarPerCover: kpis.DollarPerCover,
					Spend:          b.Spend,
					Deposit:        b.Deposit,
					TurnoverAdser:  b.TurnoverAdser,
				},
			})
		}
		data = append(data, ci)
	}

	s.recordAggregated("charts", rq.Tab, len(records))

	return &ChartResponse{
		Success: true,
		Data:    data,
		Period:  rq.Period,
		View:    rq.View,
	}, nil
}
