// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (client IP, email, ...).
// It is safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*bucket
	r     rate.Limit
	burst int
	idle  time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New allows perMinute sustained requests per key with the given burst.
// A non-positive perMinute disables limiting.
func New(perMinute, burst int) *Limiter {
	r := rate.Inf
	if perMinute > 0 {
		r = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*bucket),
		r:     r,
		burst: burst,
		idle:  10 * time.Minute,
	}
}

func (l *Limiter) bucketFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.m[key]; ok {
		b.seen = now
		return b.lim
	}
	lim := rate.NewLimiter(l.r, l.burst)
	l.m[key] = &bucket{lim: lim, seen: now}
	return lim
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	return l.bucketFor(key, now).AllowN(now, 1)
}

// Reset forgets key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, key)
}

// Sweep drops buckets idle for longer than the idle window and returns how
// many were removed. The background job runner calls it periodically.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.m {
		if now.Sub(b.seen) > l.idle {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// Middleware rejects requests over the per-IP limit with 429.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				apierr.WriteError(w, http.StatusTooManyRequests, "too many requests; try again shortly")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of the request's socket peer. Forwarding
// headers are never read here; when the service runs behind a trusted
// proxy, httplog.TrustedRealIP rewrites RemoteAddr before this is called.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter tracks both IP-based and email-based limits so neither a
// single client nor a distributed attack on one account gets unlimited tries.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows ipPerMinute attempts per IP and emailPerMinute per account.
func NewLoginLimiter(ipPerMinute, emailPerMinute int) *LoginLimiter {
	return &LoginLimiter{
		ip:    New(ipPerMinute, ipPerMinute),
		email: New(emailPerMinute, emailPerMinute),
	}
}

// Limit kinds reported by LoginLimiter.Check.
const (
	LimitIP    = "ip"
	LimitEmail = "email"
)

// Check reports whether a login attempt may proceed and, if not, which
// limit was hit (LimitIP or LimitEmail).
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, LimitIP
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		if !ll.email.Allow(email) {
			return false, LimitEmail
		}
	}
	return true, ""
}

// Message returns the client-facing text for a limit kind.
func Message(kind string) string {
	if kind == LimitEmail {
		return "Too many login attempts for this account. Please wait a few minutes."
	}
	return "Too many login attempts. Please wait a minute before trying again."
}

// ResetEmail clears the account limit after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		ll.email.Reset(email)
	}
}

// Sweep drops idle buckets from both limiters.
func (ll *LoginLimiter) Sweep(now time.Time) int {
	return ll.ip.Sweep(now) + ll.email.Sweep(now)
}
