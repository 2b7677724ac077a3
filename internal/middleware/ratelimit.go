package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FloodGateConfig configures the coarse per-IP token bucket that sits in
// front of the role-aware sliding-window limiter. It protects the gateway
// itself; the per-identity query budgets are enforced downstream.
type FloodGateConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FloodGate enforces a per-client token-bucket rate limit. When the limit
// is exceeded it responds 429 with standard rate-limit headers. Stop
// releases the background cleanup goroutine.
type FloodGate struct {
	cfg      FloodGateConfig
	clients  sync.Map // map[string]*clientLimiter
	stop     chan struct{}
	stopOnce sync.Once
}

// NewFloodGate creates the gate and starts its idle-client eviction loop.
func NewFloodGate(cfg FloodGateConfig) *FloodGate {
	g := &FloodGate{cfg: cfg, stop: make(chan struct{})}
	go g.evictLoop()
	return g
}

// Stop terminates the eviction loop. Idempotent.
func (g *FloodGate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

// evictLoop drops entries idle for more than 10 minutes.
func (g *FloodGate) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.clients.Range(func(key, value any) bool {
				cl := value.(*clientLimiter)
				if time.Since(cl.lastSeen) > 10*time.Minute {
					g.clients.Delete(key)
				}
				return true
			})
		}
	}
}

func (g *FloodGate) limiterFor(ip string) *rate.Limiter {
	if v, ok := g.clients.Load(ip); ok {
		cl := v.(*clientLimiter)
		cl.lastSeen = time.Now()
		return cl.limiter
	}
	limiter := rate.NewLimiter(rate.Limit(g.cfg.RequestsPerSecond), g.cfg.Burst)
	g.clients.Store(ip, &clientLimiter{limiter: limiter, lastSeen: time.Now()})
	return limiter
}

// Middleware is the chi-compatible wrapper applying the gate.
func (g *FloodGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := g.limiterFor(clientIP(r))

		reservation := limiter.Reserve()
		if !reservation.OK() {
			writeTooManyRequests(w, 0)
			return
		}

		delay := reservation.Delay()
		if delay > 0 {
			reservation.Cancel()
			writeTooManyRequests(w, int(delay.Seconds())+1)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(g.cfg.Burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		next.ServeHTTP(w, r)
	})
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusTooManyRequests,
		"message": "rate limit exceeded",
	})
}
