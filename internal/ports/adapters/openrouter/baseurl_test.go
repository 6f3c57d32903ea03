package openrouter

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		allowedHosts []string
		wantErr      string
	}{
		{name: "empty uses default", baseURL: ""},
		{name: "default host with https", baseURL: "https://openrouter.ai/"},
		{name: "default api host with https", baseURL: "https://api.openrouter.ai"},
		{name: "reject non-absolute URL", baseURL: "openrouter.ai", wantErr: "absolute URL"},
		{name: "reject http", baseURL: "http://openrouter.ai", wantErr: "https is required"},
		{name: "reject unknown host", baseURL: "https://evil.example", wantErr: "not in OPENROUTER_ALLOWED_HOSTS"},
		{name: "reject userinfo", baseURL: "https://u:p@openrouter.ai", wantErr: "userinfo is not allowed"},
		{name: "reject query", baseURL: "https://openrouter.ai?x=1", wantErr: "query and fragment"},
		{
			name:         "allow configured host",
			baseURL:      "https://proxy.internal",
			allowedHosts: []string{" https://Proxy.Internal:8443/v1 "},
		},
		{
			name:         "configured list replaces defaults",
			baseURL:      "https://openrouter.ai",
			allowedHosts: []string{"proxy.internal"},
			wantErr:      "not in OPENROUTER_ALLOWED_HOSTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.baseURL, tt.allowedHosts)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrBaseURL) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeAllowedHosts_DefaultWhenEmpty(t *testing.T) {
	out := normalizeAllowedHosts([]string{" ", "https://", "http://"})
	if len(out) != len(defaultAllowedHosts) {
		t.Fatalf("expected default allowed hosts, got %v", out)
	}
}
