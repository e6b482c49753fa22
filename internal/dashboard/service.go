package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/centxo/adser-dashboard/internal/metrics"
	"github.com/centxo/adser-dashboard/internal/models"
	"github.com/centxo/adser-dashboard/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tune a Service.
type Options struct {
	// Location is the business time zone calendar days are cut in.
	Location *time.Location
	// FallbackRate is used when no exchange rate has been synced.
	FallbackRate float64
	// LegacyChartTab answers an unknown tab on the chart endpoint with an
	// empty series instead of an error.
	LegacyChartTab bool
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Service computes the dashboard aggregations.
type Service struct {
	store   storage.MetricStore
	tabs    *config.TabSet
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a dashboard service.
func NewService(store storage.MetricStore, tabs *config.TabSet, opts Options, logger *zap.Logger, m *metrics.Metrics) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FallbackRate <= 0 {
		opts.FallbackRate = config.DefaultExchangeRate
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		tabs:    tabs,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// Tabs returns the configured tabs.
func (s *Service) Tabs() []config.Tab {
	return s.tabs.All()
}

// resolve validates q and binds it to its tab and day bounds. A nil result
// with a nil error means the tab is unknown and the legacy empty answer
// applies.
func (s *Service) resolve(q Query, allowUnknownTab bool) (*resolvedQuery, error) {
	q = q.WithDefaults()
	if err := q.checkRequired(); err != nil {
		return nil, err
	}

	tab, ok := s.tabs.Lookup(q.Tab)
	if !ok {
		if allowUnknownTab {
			return nil, nil
		}
		return nil, requestErrorf(ErrInvalidTab, "Invalid tab: %s", q.Tab)
	}

	if err := q.checkView(); err != nil {
		return nil, err
	}
	if err := q.checkPeriod(); err != nil {
		return nil, err
	}

	start, end, err := dayBounds(q.StartDate, q.EndDate, s.opts.Location)
	if err != nil {
		return nil, err
	}

	return &resolvedQuery{Query: q, tab: tab, start: start, end: end}, nil
}

// load reads the matching records and the latest exchange rate concurrently.
func (s *Service) load(ctx context.Context, rq *resolvedQuery) ([]*models.MetricRecord, float64, error) {
	var (
		records []*models.MetricRecord
		latest  *models.ExchangeRate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := s.store.ListRecords(gctx, storage.RecordFilter{
			Teams: rq.tab.Teams,
			Start: rq.start,
			End:   rq.end,
		})
		if err != nil {
			s.recordStoreError("list_records")
			return fmt.Errorf("failed to load metric records: %w", err)
		}
		records = recs
		return nil
	})
	g.Go(func() error {
		rate, err := s.store.LatestExchangeRate(gctx)
		if err != nil {
			s.recordStoreError("latest_exchange_rate")
			return fmt.Errorf("failed to load exchange rate: %w", err)
		}
		latest = rate
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if latest == nil {
		s.logger.Warn("no exchange rate found, using fallback",
			zap.Float64("fallback_rate", s.opts.FallbackRate),
		)
		if s.metrics != nil {
			s.metrics.RecordExchangeRateFallback()
		}
		return records, s.opts.FallbackRate, nil
	}

	return records, latest.Rate, nil
}

func (s *Service) recordStoreError(op string) {
	if s.metrics != nil {
		s.metrics.RecordStoreError(op)
	}
}

func (s *Service) recordAggregated(endpoint, tab string, n int) {
	if s.metrics != nil {
		s.metrics.RecordRecordsAggregated(endpoint, tab, n)
	}
}
