package storage

import (
	"context"
	"sync"

	"github.com/centxo/adser-dashboard/internal/models"
)

// InMemoryMetricStore keeps records and rates in memory.
type InMemoryMetricStore struct {
	mu      sync.RWMutex
	records []*models.MetricRecord
	rates   []*models.ExchangeRate
	nextID  int64
}

// NewInMemoryMetricStore creates an empty in-memory store.
func NewInMemoryMetricStore() *InMemoryMetricStore {
	return &InMemoryMetricStore{}
}

// AddRecords appends records. Duplicates are kept, as with the sheet sync.
func (s *InMemoryMetricStore) AddRecords(recs ...*models.MetricRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range recs {
		cp := *r
		s.nextID++
		cp.ID = s.nextID
		s.records = append(s.records, &cp)
	}
}

// AddExchangeRate appends a rate.
func (s *InMemoryMetricStore) AddExchangeRate(rate *models.ExchangeRate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rate
	s.rates = append(s.rates, &cp)
}

func (s *InMemoryMetricStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*models.MetricRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.MetricRecord, 0)
	for _, r := range s.records {
		if filter.Matches(r) {
			cp := *r
			result = append(result, &cp)
		}
	}
	sortRecords(result)
	return result, nil
}

func (s *InMemoryMetricStore) LatestExchangeRate(ctx context.Context) (*models.ExchangeRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.ExchangeRate
	for _, r := range s.rates {
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemoryMetricStore) Health(ctx context.Context) error {
	return nil
}
