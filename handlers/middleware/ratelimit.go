package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the per client limits, Limit is in calls per minute.
type RateLimitConfig struct {
	Limit          uint
	Burst          uint
	Disabled       bool
	WhitelistedIPs []string
}

// rateLimitEntry represents a rate limiter for a specific key
type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware limits api calls per client ip
type RateLimitMiddleware struct {
	config           RateLimitConfig
	rateLimiters     map[string]*rateLimitEntry
	mutex            sync.Mutex
	cleanupTimer     *time.Timer
	whitelistedIPs   map[string]bool
	whitelistedCIDRs []*net.IPNet
}

// NewRateLimitMiddleware creates a new rate limiting middleware instance
func NewRateLimitMiddleware(config RateLimitConfig) *RateLimitMiddleware {
	middleware := &RateLimitMiddleware{
		config:           config,
		rateLimiters:     make(map[string]*rateLimitEntry),
		whitelistedIPs:   make(map[string]bool),
		whitelistedCIDRs: make([]*net.IPNet, 0),
	}

	for _, ipOrCidr := range config.WhitelistedIPs {
		if _, ipNet, err := net.ParseCIDR(ipOrCidr); err == nil {
			middleware.whitelistedCIDRs = append(middleware.whitelistedCIDRs, ipNet)
		} else if parsedIP := net.ParseIP(ipOrCidr); parsedIP != nil {
			middleware.whitelistedIPs[ipOrCidr] = true
		} else {
			logrus.WithField("entry", ipOrCidr).Warn("invalid IP/CIDR in whitelist, ignoring")
		}
	}

	middleware.startCleanupTimer()

	return middleware
}

// Stop ends the periodic cleanup of idle limiters.
func (m *RateLimitMiddleware) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.cleanupTimer != nil {
		m.cleanupTimer.Stop()
		m.cleanupTimer = nil
	}
}

func (m *RateLimitMiddleware) startCleanupTimer() {
	m.cleanupTimer = time.AfterFunc(5*time.Minute, func() {
		m.cleanupOldLimiters()

		m.mutex.Lock()
		defer m.mutex.Unlock()
		if m.cleanupTimer != nil {
			m.cleanupTimer.Reset(5 * time.Minute)
		}
	})
}

// cleanupOldLimiters removes rate limiters that haven't been used recently
func (m *RateLimitMiddleware) cleanupOldLimiters() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range m.rateLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(m.rateLimiters, key)
		}
	}
}

func (m *RateLimitMiddleware) isWhitelisted(ip string) bool {
	if m.whitelistedIPs[ip] {
		return true
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, ipNet := range m.whitelistedCIDRs {
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

// getRateLimiter gets or creates a rate limiter for a specific key
func (m *RateLimitMiddleware) getRateLimiter(key string) *rate.Limiter {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	burst := m.config.Burst
	if burst == 0 {
		burst = 10
	}

	entry, exists := m.rateLimiters[key]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(m.config.Limit)/60, int(burst)) // Convert per-minute to per-second
		entry = &rateLimitEntry{
			limiter:  limiter,
			lastSeen: time.Now(),
		}
		m.rateLimiters[key] = entry
	} else {
		entry.lastSeen = time.Now()
	}

	return entry.limiter
}

// Middleware applies rate limiting to API requests. Each call consumes the
// call cost set by CallCostMiddleware.
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		if !m.config.Disabled && m.config.Limit > 0 && !m.isWhitelisted(clientIP) {
			rateLimitKey := fmt.Sprintf("ip:%s", clientIP)
			limiter := m.getRateLimiter(rateLimitKey)
			resetTime := strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10)

			if !limiter.AllowN(time.Now(), GetCallCost(r)) {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatUint(uint64(m.config.Limit), 10))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", resetTime)

				logrus.WithFields(logrus.Fields{
					"client_ip":      clientIP,
					"rate_limit_key": rateLimitKey,
					"rate_limit":     m.config.Limit,
				}).Warn("API rate limit exceeded")

				APIErrorResponse(w, http.StatusTooManyRequests, "ERROR: rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatUint(uint64(m.config.Limit), 10))
			remaining := limiter.Tokens()
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatFloat(remaining, 'f', 0, 64))
			w.Header().Set("X-RateLimit-Reset", resetTime)
		}

		next.ServeHTTP(w, r)
	})
}
