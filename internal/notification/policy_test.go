package notification

import "testing"

type policyConfig struct {
	origins []string
}

func (c policyConfig) GetNotificationAllowedOrigins() []string { return c.origins }

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"exact host", []string{"example.com"}, "example.com", true},
		{"full origin against host entry", []string{"example.com"}, "https://example.com", true},
		{"different host", []string{"example.com"}, "evil.com", false},
		{"subdomain without wildcard", []string{"example.com"}, "app.example.com", false},
		{"wildcard subdomain", []string{"*.example.com"}, "app.example.com", true},
		{"wildcard matches apex", []string{"*.example.com"}, "example.com", true},
		{"wildcard rejects other domain", []string{"*.example.com"}, "example.org", false},
		{"star allows anything", []string{"*"}, "whatever.test", true},
		{"empty origin always suppressed", []string{"*"}, "", false},
		{"empty allow list suppresses", nil, "example.com", false},
		{"case insensitive", []string{"Example.COM"}, "https://EXAMPLE.com", true},
		{"port ignored in origin", []string{"localhost"}, "http://localhost:3000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewOriginPolicy(policyConfig{origins: tt.allowed})
			if got := policy.Allows(tt.origin); got != tt.want {
				t.Errorf("Allows(%q) with %v = %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}
