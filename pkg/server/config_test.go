package server

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var nilConfig *Config
	if got := nilConfig.withDefaults(); got.Address != ":3000" || got.SessionConfig == nil {
		t.Errorf("nil config should yield the defaults, got %+v", got)
	}

	c := &Config{
		Address: ":8080",
		SessionConfig: &SessionConfig{
			IdleTimeout: time.Minute,
		},
	}
	got := c.withDefaults()
	if got.Address != ":8080" {
		t.Errorf("Address = %q", got.Address)
	}
	if got.SessionConfig.IdleTimeout != time.Minute {
		t.Errorf("IdleTimeout = %v, want 1m", got.SessionConfig.IdleTimeout)
	}
	if got.SessionConfig.WriteTimeout != DefaultSessionConfig().WriteTimeout {
		t.Errorf("WriteTimeout = %v, want the default", got.SessionConfig.WriteTimeout)
	}
	if c.SessionConfig.WriteTimeout != 0 {
		t.Error("withDefaults should not modify its receiver")
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://example.com", true},
		{"other host", "http://evil.com", false},
		{"bad url", "://", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "http://example.com/_tal/live", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := SameOriginCheck(r); got != tt.want {
				t.Errorf("SameOriginCheck(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
