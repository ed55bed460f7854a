package middleware

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/soban-iftikhar/HostelMate/utils"
)

// In-memory rate limiting and login-lockout tracking. Intentionally
// memory-only; designed to be replaced by Redis later.

type timestamps []int64 // unix nanos

func nowUnix() int64 { return time.Now().UnixNano() }

func getEnvDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := time.ParseDuration(s); err == nil {
			return v
		}
	}
	return def
}

// IPRateLimiter implements per-IP fixed-window counters with optional
// trusted-proxy parsing of X-Forwarded-For / X-Real-IP.
type IPRateLimiter struct {
	window      time.Duration
	maxReq      int
	mu          sync.Mutex
	state       map[string]timestamps
	cleanupTick time.Duration
	trustedCIDR []string
}

func NewIPRateLimiter(maxReq int, window time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{
		window:      window,
		maxReq:      maxReq,
		state:       make(map[string]timestamps),
		cleanupTick: getEnvDuration("RATE_CLEANUP_INTERVAL", time.Minute),
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		l.trustedCIDR = strings.Split(v, ",")
	}
	go l.cleanupLoop()
	return l
}

// clientIPGeneric returns the client IP string. Forwarding headers are only
// honored when the remote addr is inside one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware applies per-IP limits and sets rate-limit headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPGeneric(r, l.trustedCIDR)
		count, retryAfter := l.record(ip)

		remaining := l.maxReq - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.maxReq))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > l.maxReq {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: "Too many requests, try again later",
				Data:    map[string]interface{}{"retry_after_seconds": retryAfter},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// record appends now to the key's window and returns the in-window count plus
// the seconds until the oldest entry expires.
func (l *IPRateLimiter) record(key string) (int, int) {
	now := nowUnix()
	cutoff := now - int64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	var filtered timestamps
	oldest := now
	for _, ts := range l.state[key] {
		if ts >= cutoff {
			filtered = append(filtered, ts)
			if ts < oldest {
				oldest = ts
			}
		}
	}
	filtered = append(filtered, now)
	l.state[key] = filtered

	retryAfter := int((oldest + int64(l.window) - now) / 1e9)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return len(filtered), retryAfter
}

func (l *IPRateLimiter) cleanupLoop() {
	tick := time.NewTicker(l.cleanupTick)
	defer tick.Stop()
	for range tick.C {
		l.mu.Lock()
		cutoff := nowUnix() - int64(l.window)
		for k, arr := range l.state {
			var filtered timestamps
			for _, ts := range arr {
				if ts >= cutoff {
					filtered = append(filtered, ts)
				}
			}
			if len(filtered) == 0 {
				delete(l.state, k)
			} else {
				l.state[k] = filtered
			}
		}
		l.mu.Unlock()
	}
}

// UserRateLimiter applies per-user sliding windows with separate read and
// write budgets. Falls back to IP keying for unauthenticated requests.
type UserRateLimiter struct {
	mu       sync.Mutex
	state    map[string]timestamps
	window   time.Duration
	maxRead  int
	maxWrite int
}

func NewUserRateLimiter(maxRead, maxWrite int, window time.Duration) *UserRateLimiter {
	l := &UserRateLimiter{
		state:    make(map[string]timestamps),
		window:   window,
		maxRead:  maxRead,
		maxWrite: maxWrite,
	}
	return l
}

func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIPGeneric(r, nil)
		if uid, ok := utils.GetUserID(r); ok && uid != 0 {
			key = fmt.Sprintf("u:%d", uid)
		}

		limit := l.maxRead
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			limit = l.maxWrite
			key = key + ":w"
		}

		now := nowUnix()
		cutoff := now - int64(l.window)
		l.mu.Lock()
		var filtered timestamps
		for _, ts := range l.state[key] {
			if ts >= cutoff {
				filtered = append(filtered, ts)
			}
		}
		filtered = append(filtered, now)
		l.state[key] = filtered
		count := len(filtered)
		l.mu.Unlock()

		if count > limit {
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: "Too many requests, try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login lockout tracking: 5 failed attempts lock the account for 15 minutes.

type lockoutInfo struct {
	Failures int
	Until    int64 // unix nanos
}

var (
	lockoutMu    sync.Mutex
	lockoutState = make(map[uint]lockoutInfo)
)

const (
	lockoutThreshold = 5
	lockoutDuration  = 15 * time.Minute
)

// IsAccountLocked reports whether the user is locked out and for how long.
func IsAccountLocked(userID uint) (bool, time.Duration) {
	lockoutMu.Lock()
	defer lockoutMu.Unlock()
	info, ok := lockoutState[userID]
	if !ok || info.Until == 0 {
		return false, 0
	}
	remaining := time.Duration(info.Until - nowUnix())
	if remaining <= 0 {
		delete(lockoutState, userID)
		return false, 0
	}
	return true, remaining
}

// RecordFailedLogin bumps the failure counter and starts the lockout window
// once the threshold is reached.
func RecordFailedLogin(userID uint) {
	lockoutMu.Lock()
	defer lockoutMu.Unlock()
	info := lockoutState[userID]
	info.Failures++
	if info.Failures >= lockoutThreshold {
		info.Until = nowUnix() + int64(lockoutDuration)
	}
	lockoutState[userID] = info
}

// ResetFailedLogin clears lockout state after a successful login.
func ResetFailedLogin(userID uint) {
	lockoutMu.Lock()
	defer lockoutMu.Unlock()
	delete(lockoutState, userID)
}
