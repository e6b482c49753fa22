package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/centxo/adser-dashboard/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a token bucket per client IP to the API routes.
type RateLimitMiddleware struct {
	cfg     config.RateLimitConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	prefix  string

	mu         sync.Mutex
	ipLimiters map[string]*ipLimiter
}

// NewRateLimitMiddleware creates a new rate limiting middleware. Only paths
// under prefix are limited.
func NewRateLimitMiddleware(cfg config.RateLimitConfig, prefix string, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cfg:        cfg,
		logger:     logger,
		prefix:     prefix,
		ipLimiters: make(map[string]*ipLimiter),
	}
}

func (rl *RateLimitMiddleware) SetMetrics(m *metrics.Metrics) {
	rl.metrics = m
}

func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled || !strings.HasPrefix(r.URL.Path, rl.prefix) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !rl.limiterFor(ip).Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(routeLabel(r.URL.Path))
			}
			rl.tooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.ipLimiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)}
		rl.ipLimiters[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

// CleanupIPLimiters drops limiters of clients idle for longer than maxIdle.
func (rl *RateLimitMiddleware) CleanupIPLimiters(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for ip, l := range rl.ipLimiters {
		if l.lastSeen.Before(cutoff) {
			delete(rl.ipLimiters, ip)
			removed++
		}
	}
	rl.logger.Debug("cleaned up IP rate limiters",
		zap.Int("removed", removed),
		zap.Int("remaining", len(rl.ipLimiters)),
	)
	return removed
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func (rl *RateLimitMiddleware) tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded"}`))
}
