package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inviteai/internal/ratelimit"
)

// RateLimit admits at most limit requests per window for each client IP.
func RateLimit(limiter ratelimit.Limiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow("ip:"+clientIPForRateLimit(r), limit, window) {
				w.Header().Set("Retry-After", retryAfter(limit, window))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(limit int, window time.Duration) string {
	if limit <= 0 {
		return "60"
	}
	secs := int((window / time.Duration(limit)).Seconds())
	return strconv.Itoa(max(secs, 1))
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
