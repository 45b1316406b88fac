// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"time"

	"github.com/maruel/contactcrm/internal/storage"
)

// Tier is a named limiter.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Limiters holds the tiers applied to the API. A nil tier is unlimited.
type Limiters struct {
	Write *Tier
	Read  *Tier
}

// NewLimiters builds the tiers from the server configuration. A rate of 0
// disables the tier.
func NewLimiters(cfg storage.RateLimits) *Limiters {
	l := &Limiters{}
	if cfg.WriteRatePerMin > 0 {
		l.Write = &Tier{Name: "write", Limiter: NewLimiter(cfg.WriteRatePerMin, time.Minute, max(cfg.WriteRatePerMin/6, 1))}
	}
	if cfg.ReadRatePerMin > 0 {
		l.Read = &Tier{Name: "read", Limiter: NewLimiter(cfg.ReadRatePerMin, time.Minute, max(cfg.ReadRatePerMin/6, 1))}
	}
	return l
}

// Match returns the tier for a request, or nil when it is not limited.
func (l *Limiters) Match(method, path string) *Tier {
	if l == nil || path == "/api/health" {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return l.Write
	case http.MethodGet, http.MethodHead:
		return l.Read
	default:
		return nil
	}
}

// Close stops all limiter cleanup goroutines.
func (l *Limiters) Close() {
	if l == nil {
		return
	}
	for _, t := range []*Tier{l.Write, l.Read} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}

// BuildKey creates a bucket key from the client identifier and tier name.
func BuildKey(identifier, tierName string) string {
	return "ip:" + identifier + ":" + tierName
}
