package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/centxo/adser-dashboard/internal/cache"
	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/centxo/adser-dashboard/internal/dashboard"
	"github.com/centxo/adser-dashboard/internal/database"
	"github.com/centxo/adser-dashboard/internal/metrics"
	"github.com/centxo/adser-dashboard/internal/middleware"
	"github.com/centxo/adser-dashboard/internal/storage"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Store   storage.MetricStore
	Redis   *database.RedisDB
	Cache   *cache.SWRCache
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Now overrides the clock of the dashboard service.
	Now func() time.Time
}

// Server wraps HTTP handlers and the dashboard service.
type Server struct {
	dashboard *dashboard.Service
	store     storage.MetricStore
	redis     *database.RedisDB
	cache     *cache.SWRCache
	logger    *zap.Logger
	config    *config.Config
	metrics   *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := dashboard.NewService(deps.Store, deps.Config.Tabs, dashboard.Options{
		Location:       deps.Config.Location(),
		FallbackRate:   deps.Config.Dashboard.FallbackExchangeRate,
		LegacyChartTab: deps.Config.Dashboard.LegacyChartTab,
		Now:            deps.Now,
	}, logger.Named("dashboard"), deps.Metrics)

	s := &Server{
		dashboard: svc,
		store:     deps.Store,
		redis:     deps.Redis,
		cache:     deps.Cache,
		logger:    logger,
		config:    deps.Config,
		metrics:   deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle(deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Dashboard
	mux.HandleFunc("/api/dashboard/data", s.handleData)
	mux.HandleFunc("/api/dashboard/charts", s.handleCharts)
	mux.HandleFunc("/api/dashboard/tabs", s.handleTabs)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.store.Health(ctx); err != nil {
		checks["store"] = err.Error()
		healthy = false
	} else {
		checks["store"] = "ok"
	}

	if s.redis != nil {
		if err := s.redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ---- Dashboard ----

func dashboardQuery(r *http.Request) dashboard.Query {
	q := r.URL.Query()
	return dashboard.Query{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Tab:       q.Get("tab"),
		View:      dashboard.View(q.Get("view")),
		Period:    dashboard.Period(q.Get("period")),
	}.WithDefaults()
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := dashboardQuery(r)
	key := []string{"data", q.Tab, q.StartDate, q.EndDate, string(q.View)}

	s.serveCached(w, r, key, "Failed to fetch dashboard data", func(ctx context.Context) (interface{}, error) {
		return s.dashboard.GetData(ctx, q)
	})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := dashboardQuery(r)
	key := []string{"charts", q.Tab, q.StartDate, q.EndDate, string(q.View), string(q.Period)}

	s.serveCached(w, r, key, "Failed to fetch chart data", func(ctx context.Context) (interface{}, error) {
		return s.dashboard.GetCharts(ctx, q)
	})
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.jsonResponse(w, map[string]interface{}{"tabs": s.dashboard.Tabs()})
}

// serveCached answers from the response cache when it is enabled and from
// compute otherwise. Failed computations are never cached.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key []string, failure string, compute func(context.Context) (interface{}, error)) {
	load := func(ctx context.Context) ([]byte, error) {
		resp, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	}

	var (
		body []byte
		err  error
	)
	if s.cache != nil {
		var res cache.Result
		body, res, err = s.cache.Get(r.Context(), s.cache.Key(key...), load)
		w.Header().Set("X-Cache", string(res))
	} else {
		body, err = load(r.Context())
	}

	if err != nil {
		s.dashboardError(w, r, err, failure)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) dashboardError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	var reqErr *dashboard.RequestError
	if errors.As(err, &reqErr) {
		s.errorResponse(w, reqErr.Message, http.StatusBadRequest)
		return
	}

	s.logger.Error(failure,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("query", r.URL.RawQuery),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   failure,
		"details": err.Error(),
	})
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
