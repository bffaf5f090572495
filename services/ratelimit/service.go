package ratelimit

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds per-key token bucket settings
type Config struct {
	RequestsPerMinute int
	Burst             int
	IdleTTL           time.Duration
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitService keeps one token bucket per caller key in memory
type RateLimitService struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(cfg Config, logger *zap.Logger) *RateLimitService {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &RateLimitService{
		entries: make(map[string]*entry),
		limit:   rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		logger:  logger,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Allow consumes one token for key
func (s *RateLimitService) Allow(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now

	res := Result{Limit: s.burst}
	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return res
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		return res
	}

	res.Allowed = true
	res.Remaining = int(math.Max(0, math.Floor(e.limiter.TokensAt(now))))
	return res
}

// Len returns the number of tracked keys
func (s *RateLimitService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup evicts keys idle for longer than the configured TTL
func (s *RateLimitService) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	evicted := 0
	for key, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}

// Start runs Cleanup every half TTL until Stop is called
func (s *RateLimitService) Start() {
	go func() {
		ticker := time.NewTicker(s.idleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					s.logger.Debug("evicted idle rate limiters", zap.Int("count", n))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup loop. Safe to call more than once.
func (s *RateLimitService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
