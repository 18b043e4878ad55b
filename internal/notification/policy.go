// Package notification delivers customer and staff emails through a
// Postgres outbox. The origin policy gating customer-facing notifications
// lives here too.
package notification

import (
	"net/url"
	"strings"

	"servicecert_backend/platform/config"
)

// OriginPolicy decides whether customer-facing notifications may fire for a
// trigger arriving from a given origin. An empty allow-list suppresses all
// customer notifications; staff notifications are never gated.
type OriginPolicy struct {
	allowed []string
}

// NewOriginPolicy creates the policy from configuration.
func NewOriginPolicy(cfg config.NotificationPolicyConfig) *OriginPolicy {
	return &OriginPolicy{allowed: cfg.GetNotificationAllowedOrigins()}
}

// Allows reports whether the origin matches the allow-list. Entries may be
// bare hostnames, full origins, `*.domain` wildcards, or `*`.
func (p *OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}

	host := origin
	if strings.Contains(origin, "://") {
		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host = parsed.Hostname()
	}
	host = strings.ToLower(host)

	for _, entry := range p.allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if entry == "*" {
			return true
		}
		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:] // ".example.com"
			if strings.HasSuffix(host, suffix) || host == entry[2:] {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}
