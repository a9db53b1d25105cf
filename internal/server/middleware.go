package server

import (
	"crypto/subtle"
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const authRealm = `Basic realm="Secure Area"`

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// recoverer turns a handler panic into a 500 response
func recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs method, path, status and duration of every request
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
			)
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

// AuthLimitConfig bounds failed Basic auth attempts per client IP
type AuthLimitConfig struct {
	Rate      rate.Limit    // Sustained failures per second
	Burst     int           // Failures allowed before blocking
	IdleAfter time.Duration // Entries unused this long are dropped
}

// DefaultAuthLimitConfig allows 5 failures, then one every 12 seconds
func DefaultAuthLimitConfig() AuthLimitConfig {
	return AuthLimitConfig{
		Rate:      rate.Limit(5.0 / 60.0),
		Burst:     5,
		IdleAfter: 15 * time.Minute,
	}
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// authLimiter tracks failed authentication attempts per IP. Only failures
// consume tokens, so a client with the right password is never throttled
// unless it failed repeatedly first.
type authLimiter struct {
	config AuthLimitConfig

	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

func newAuthLimiter(config AuthLimitConfig) *authLimiter {
	return &authLimiter{
		config:   config,
		limiters: make(map[string]*ipLimiter),
	}
}

func (l *authLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if il, ok := l.limiters[ip]; ok {
		il.lastAccess = now
		return il.limiter
	}

	for key, il := range l.limiters {
		if now.Sub(il.lastAccess) > l.config.IdleAfter {
			delete(l.limiters, key)
		}
	}

	limiter := rate.NewLimiter(l.config.Rate, l.config.Burst)
	l.limiters[ip] = &ipLimiter{limiter: limiter, lastAccess: now}
	return limiter
}

func (l *authLimiter) blocked(ip string) bool {
	return l.get(ip).Tokens() < 1
}

func (l *authLimiter) fail(ip string) {
	l.get(ip).Allow()
}

func (l *authLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// basicAuth requires the web password with any username. An empty password
// disables the check.
func basicAuth(password string, limiter *authLimiter, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if password == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if limiter.blocked(ip) {
				logger.Warn("auth rate limit exceeded", slog.String("ip", ip))
				writeRateLimited(w, limiter.config.Rate)
				return
			}

			_, given, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(given), []byte(password)) != 1 {
				if ok {
					limiter.fail(ip)
				}
				w.Header().Set("WWW-Authenticate", authRealm)
				http.Error(w, "Authentication required.", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimited(w http.ResponseWriter, limit rate.Limit) {
	retryAfter := 1
	if limit > 0 {
		retryAfter = max(int(math.Ceil(1.0/float64(limit))), 1)
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, "too many failed login attempts, try again later")
}
