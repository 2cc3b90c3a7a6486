package ratelimit

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"fitgate/pkg/logging"
)

const (
	DefaultLimit         = 500
	DefaultWindow        = 15 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Config holds configuration for a Limiter.
type Config struct {
	// Name identifies the limiter in logs, e.g. "token" or "ip".
	Name string

	// Limit is the number of requests allowed per key within Window.
	// Default: 500
	Limit int

	// Window is the fixed window length.
	// Default: 15 minutes
	Window time.Duration

	// SweepInterval is how often expired windows are evicted.
	// Default: 1 minute
	SweepInterval time.Duration

	Clock clock.PassiveClock
}

// Window is the counter for one key.
type Window struct {
	Count   int
	ResetAt time.Time
}

// Decision is the outcome of counting one request.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int((d.RetryAfter + time.Second - 1) / time.Second)
}

// Limiter is a fixed-window request counter keyed by an arbitrary string.
// When a window has passed its reset time the next request starts a new
// window at count 1; counts never decay gradually.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*Window

	name          string
	limit         int
	window        time.Duration
	sweepInterval time.Duration
	clock         clock.PassiveClock

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// New creates a limiter. Call Start to run the periodic sweep.
func New(cfg Config) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	return &Limiter{
		windows:       make(map[string]*Window),
		name:          cfg.Name,
		limit:         cfg.Limit,
		window:        cfg.Window,
		sweepInterval: cfg.SweepInterval,
		clock:         cfg.Clock,
		stopCleanup:   make(chan struct{}),
	}
}

// Take counts a request for key and reports whether it is within the limit.
func (l *Limiter) Take(key string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	w, ok := l.windows[key]
	if !ok || now.After(w.ResetAt) {
		w = &Window{Count: 1, ResetAt: now.Add(l.window)}
		l.windows[key] = w
	} else {
		w.Count++
	}
	d := l.decide(w, now)
	l.mu.Unlock()

	if !d.Allowed && d.Count == l.limit+1 {
		logging.Warn("RateLimit", "%s limit of %d per %s exceeded, resets in %ds",
			l.name, l.limit, l.window, d.RetryAfterSeconds())
	}
	return d
}

// Peek reports the current state for key without counting a request.
func (l *Limiter) Peek(key string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.ResetAt) {
		return Decision{Allowed: true, Limit: l.limit, ResetAt: now.Add(l.window)}
	}
	return l.decide(w, now)
}

func (l *Limiter) decide(w *Window, now time.Time) Decision {
	return Decision{
		Allowed:    w.Count <= l.limit,
		Count:      w.Count,
		Limit:      l.limit,
		ResetAt:    w.ResetAt,
		RetryAfter: w.ResetAt.Sub(now),
	}
}

// Allow implements echo's middleware.RateLimiterStore so the same counters
// back the framework limiter.
func (l *Limiter) Allow(identifier string) (bool, error) {
	return l.Take(identifier).Allowed, nil
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Sweep evicts windows past their reset time and returns how many were
// removed. Eviction is independent of reset: an expired window that has not
// been swept yet is simply restarted by the next Take.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for key, w := range l.windows {
		if now.After(w.ResetAt) {
			delete(l.windows, key)
			count++
		}
	}
	if count > 0 {
		logging.Debug("RateLimit", "Swept %d expired %s windows", count, l.name)
	}
	return count
}

// Start runs the periodic sweep until Stop is called.
func (l *Limiter) Start() {
	go func() {
		ticker := time.NewTicker(l.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-l.stopCleanup:
				return
			}
		}
	}()
}

// Stop stops the background sweep. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}
