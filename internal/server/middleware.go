package server

import (
	"container/list"
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CORSMiddleware adds CORS headers to responses.
// If origins is empty or nil, CORS headers are not added.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			allowAll := false
			for _, o := range origins {
				if o == "*" {
					allowed = true
					allowAll = true
					break
				}
				if o == origin {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				// When wildcard is configured, use "*" header; otherwise echo the specific origin
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
			}

			// Handle preflight request
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware adds security headers to all responses.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// SAMEORIGIN, not DENY: the editor shell frames rendered
			// previews served from the same origin.
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			// CSP: generated documents carry inline styles on every
			// element, and image blocks may point anywhere over https.
			// connect-src 'self' covers the same-origin WebSocket.
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self' 'unsafe-inline'; "+
					"style-src 'self' 'unsafe-inline'; "+
					"img-src 'self' data: https:; "+
					"font-src 'self' data:; "+
					"connect-src 'self'; "+
					"frame-ancestors 'self'")

			next.ServeHTTP(w, r)
		})
	}
}

// evictionLogInterval is the minimum time between eviction log messages.
const evictionLogInterval = 30 * time.Second

// ipLimiter tracks a per-IP token bucket and its position in the LRU list.
type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterTable is an LRU-bounded set of per-IP token buckets.
type limiterTable struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recent, back = oldest

	rps    float64
	burst  int
	maxIPs int

	// Eviction logging state (always accessed under mu)
	lastEvictLog time.Time
	evictCount   int
}

func newLimiterTable(rps float64, burst, maxIPs int) *limiterTable {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	return &limiterTable{
		items:  make(map[string]*list.Element),
		order:  list.New(),
		rps:    rps,
		burst:  burst,
		maxIPs: maxIPs,
	}
}

// allow consumes one token from the bucket for ip, creating the bucket
// on first sight and evicting the least recently seen IP at capacity.
func (t *limiterTable) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, exists := t.items[ip]
	if exists {
		t.order.MoveToFront(elem)
		elem.Value.(*ipLimiter).lastSeen = time.Now()
	} else {
		if t.order.Len() >= t.maxIPs {
			t.evictOldest()
		}
		lim := &ipLimiter{
			ip:       ip,
			limiter:  rate.NewLimiter(rate.Limit(t.rps), t.burst),
			lastSeen: time.Now(),
		}
		elem = t.order.PushFront(lim)
		t.items[ip] = elem
	}

	return elem.Value.(*ipLimiter).limiter.Allow()
}

// evictOldest is called under mu.
func (t *limiterTable) evictOldest() {
	back := t.order.Back()
	if back == nil {
		return
	}

	evicted := back.Value.(*ipLimiter)
	t.order.Remove(back)
	delete(t.items, evicted.ip)

	t.evictCount++
	if time.Since(t.lastEvictLog) >= evictionLogInterval {
		log.Printf("[RateLimit] Evicted %d least-recent IP(s) (at capacity: %d IPs)", t.evictCount, t.maxIPs)
		t.lastEvictLog = time.Now()
		t.evictCount = 0
	}
}

// sweep removes every bucket idle for longer than maxAge. LRU order
// tracks access recency, not lastSeen time, so the whole list is
// scanned rather than stopping at the first fresh entry.
func (t *limiterTable) sweep(maxAge time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for e := t.order.Back(); e != nil; {
		lim := e.Value.(*ipLimiter)
		prev := e.Prev()
		if now.Sub(lim.lastSeen) > maxAge {
			t.order.Remove(e)
			delete(t.items, lim.ip)
		}
		e = prev
	}
}

// RateLimitMiddleware limits requests using a token bucket algorithm
// with per-IP tracking. rps is the rate limit in requests per second,
// burst is the maximum burst size, and maxIPs bounds the number of
// unique IPs tracked (LRU eviction when full; <= 0 means the default).
//
// The cleanup goroutine starts immediately when this function is
// called. The ctx parameter controls its lifetime; cancel ctx to stop
// it. The returned channel is closed when the goroutine exits, allowing
// callers to wait for a clean shutdown.
func RateLimitMiddleware(ctx context.Context, rps float64, burst, maxIPs int) (func(http.Handler) http.Handler, <-chan struct{}) {
	table := newLimiterTable(rps, burst, maxIPs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				table.sweep(10 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !table.allow(getClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	return middleware, done
}

// getClientIP extracts the client IP from the request.
// It only trusts X-Forwarded-For / X-Real-IP when the immediate peer is
// a loopback or private address (i.e., behind a reverse proxy).
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peerIP := net.ParseIP(host)
	trustedProxy := peerIP != nil && (peerIP.IsLoopback() || peerIP.IsPrivate())

	if trustedProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if parts := strings.SplitN(xff, ",", 2); len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if peerIP != nil {
		return peerIP.String()
	}
	return host
}
