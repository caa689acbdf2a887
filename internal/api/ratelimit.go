package api

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"arena-survival/internal/observability"
)

const (
	visitorSweepInterval = 5 * time.Minute
	visitorIdleTTL       = 10 * time.Minute
)

// visitor is one client IP's token bucket.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter throttles HTTP requests per client IP. Buckets for clients
// that go quiet are swept in the background until Stop.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int

	rejected atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter allows rps requests per second per IP with the given
// burst.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	rl := &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the background sweep. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow takes one token from ip's bucket.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	if v.limiter.Allow() {
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Rejected returns how many requests have been refused.
func (rl *IPRateLimiter) Rejected() uint64 {
	return rl.rejected.Load()
}

// Middleware answers 429 once a client exhausts its bucket.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			observability.RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(visitorSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

// sweep forgets visitors idle for longer than visitorIdleTTL and returns
// how many were dropped.
func (rl *IPRateLimiter) sweep(now time.Time) int {
	cutoff := now.Add(-visitorIdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	dropped := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			dropped++
		}
	}
	return dropped
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	// CAUTION: forwarded headers can be spoofed if not behind a trusted proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

var (
	errHubFull    = errors.New("too many connections")
	errIPHubLimit = errors.New("too many connections from your IP")
)

// connLimiter caps concurrent websocket connections, in total and per IP.
// Slots are reserved before the upgrade and released on disconnect.
type connLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newConnLimiter(maxPerIP, maxTotal int) *connLimiter {
	return &connLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire reserves a slot for ip, or reports which cap was hit.
func (l *connLimiter) acquire(ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return errHubFull
	}
	if l.perIP[ip] >= l.maxPerIP {
		return errIPHubLimit
	}
	l.perIP[ip]++
	l.total++
	return nil
}

func (l *connLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.perIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(l.perIP, ip)
	} else {
		l.perIP[ip] = n - 1
	}
	l.total--
}

// count returns the slots held by ip and in total.
func (l *connLimiter) count(ip string) (perIP, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip], l.total
}

// originChecker accepts the same origins as the CORS configuration.
// Patterns may end in ":*" to allow any port.
type originChecker struct {
	patterns []string
}

func newOriginChecker(patterns []string) originChecker {
	if patterns == nil {
		patterns = DefaultCORSOrigins
	}
	return originChecker{patterns: patterns}
}

// allowed reports whether origin may open a websocket. Requests without an
// Origin header are not from a browser and are allowed.
func (c originChecker) allowed(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	for _, p := range c.patterns {
		if p == "*" || p == origin {
			return true
		}
		if base, ok := strings.CutSuffix(p, ":*"); ok && u.Scheme+"://"+u.Hostname() == base {
			return true
		}
	}
	return false
}
