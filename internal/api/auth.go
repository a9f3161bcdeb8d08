package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/0xPuncker/cronwatch/internal/metrics"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// AuthGuard checks bearer tokens and locks out addresses that keep failing.
// With no tokens configured it lets every request through.
type AuthGuard struct {
	tokens      [][]byte
	failures    *cache.Cache
	maxFailures int
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

func NewAuthGuard(tokens []string, maxFailures int, banDuration time.Duration, m *metrics.Metrics, logger *logrus.Logger) *AuthGuard {
	g := &AuthGuard{
		failures:    cache.New(banDuration, 2*banDuration),
		maxFailures: maxFailures,
		metrics:     m,
		logger:      logger,
	}
	for _, token := range tokens {
		if token != "" {
			g.tokens = append(g.tokens, []byte(token))
		}
	}
	if len(g.tokens) == 0 {
		logger.Warn("No API tokens configured, API is unauthenticated")
	}
	return g
}

func (g *AuthGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(g.tokens) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := remoteIP(r)
		if g.maxFailures > 0 && g.failureCount(ip) >= g.maxFailures {
			g.reject(w, ip, http.StatusTooManyRequests, "too many failed attempts")
			return
		}

		if !g.valid(bearerToken(r)) {
			g.recordFailure(ip)
			g.reject(w, ip, http.StatusUnauthorized, "unauthorized")
			return
		}

		g.failures.Delete(ip)
		next.ServeHTTP(w, r)
	})
}

func (g *AuthGuard) valid(token string) bool {
	if token == "" {
		return false
	}
	ok := false
	for _, expected := range g.tokens {
		if subtle.ConstantTimeCompare([]byte(token), expected) == 1 {
			ok = true
		}
	}
	return ok
}

func (g *AuthGuard) failureCount(ip string) int {
	if v, found := g.failures.Get(ip); found {
		return v.(int)
	}
	return 0
}

func (g *AuthGuard) recordFailure(ip string) {
	if _, err := g.failures.IncrementInt(ip, 1); err != nil {
		g.failures.Set(ip, 1, cache.DefaultExpiration)
	}
}

func (g *AuthGuard) reject(w http.ResponseWriter, ip string, code int, message string) {
	if g.metrics != nil {
		g.metrics.AuthFailed()
	}
	g.logger.WithFields(logrus.Fields{
		"remote_ip": ip,
		"status":    code,
	}).Warn("API request rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + message + `","kind":"unauthorized"}` + "\n"))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
