package dashboard

import (
	"time"

	"github.com/centxo/adser-dashboard/internal/models"
)

// Counters are the summable fields of a metric record.
type Counters struct {
	Message       float64 `json:"message"`
	PlanMessage   float64 `json:"planMessage"`
	Spend         float64 `json:"spend"`
	PlanSpend     float64 `json:"planSpend"`
	NetMessages   float64 `json:"netMessages"`
	LostMessages  float64 `json:"lostMessages"`
	Deposit       float64 `json:"deposit"`
	Turnover      float64 `json:"turnover"`
	TurnoverAdser float64 `json:"turnoverAdser"`
	Silent        float64 `json:"silent"`
	Duplicate     float64 `json:"duplicate"`
	HasUser       float64 `json:"hasUser"`
	Spam          float64 `json:"spam"`
	Blocked       float64 `json:"blocked"`
	Under18       float64 `json:"under18"`
	Over50        float64 `json:"over50"`
	Foreign       float64 `json:"foreign"`
}

// Add sums a record into the counters.
func (c *Counters) Add(r *models.MetricRecord) {
	c.Message += r.Message
	c.PlanMessage += r.PlanMessage
	c.Spend += r.Spend
	c.PlanSpend += r.PlanSpend
	c.NetMessages += r.NetMessages
	c.LostMessages += r.LostMessages
	c.Deposit += r.Deposit
	c.Turnover += r.Turnover
	c.TurnoverAdser += r.TurnoverAdser
	c.Silent += r.Silent
	c.Duplicate += r.Duplicate
	c.HasUser += r.HasUser
	c.Spam += r.Spam
	c.Blocked += r.Blocked
	c.Under18 += r.Under18
	c.Over50 += r.Over50
	c.Foreign += r.Foreign
}

// Bucket accumulates the records sharing one display key.
type Bucket struct {
	Key       string
	FirstDate time.Time
	Counters

	days map[string]struct{}
}

func (b *Bucket) add(r *models.MetricRecord, loc *time.Location) {
	b.Counters.Add(r)

	d := r.Date.In(loc)
	if b.FirstDate.IsZero() || d.Before(b.FirstDate) {
		b.FirstDate = d
	}
	b.days[d.Format(dateLayout)] = struct{}{}
}

// DayCount is the number of distinct calendar days that fed the bucket.
func (b *Bucket) DayCount() int {
	return len(b.days)
}

// bucketSet is an insertion-ordered key -> bucket map scoped to one request.
type bucketSet struct {
	order []*Bucket
	byKey map[string]*Bucket
}

func newBucketSet() *bucketSet {
	return &bucketSet{byKey: make(map[string]*Bucket)}
}

func (s *bucketSet) get(key string) *Bucket {
	b, ok := s.byKey[key]
	if !ok {
		b = &Bucket{Key: key, days: make(map[string]struct{})}
		s.byKey[key] = b
		s.order = append(s.order, b)
	}
	return b
}

func (s *bucketSet) list() []*Bucket {
	return s.order
}
