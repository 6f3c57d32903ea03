package openrouter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

// ErrBaseURL is wrapped by every ValidateBaseURL rejection.
var ErrBaseURL = errors.New("invalid OPENROUTER_BASE_URL")

var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

func rejectBaseURL(baseURL, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrBaseURL, baseURL, reason)
}

// ValidateBaseURL accepts only https URLs without credentials, query or
// fragment whose host is in allowedHosts (openrouter.ai hosts when empty).
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBaseURL, err)
	}
	switch {
	case !u.IsAbs() || u.Host == "":
		return rejectBaseURL(baseURL, "absolute URL with host is required")
	case u.User != nil:
		return rejectBaseURL(baseURL, "userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return rejectBaseURL(baseURL, "query and fragment are not allowed")
	case !strings.EqualFold(u.Scheme, "https"):
		return rejectBaseURL(baseURL, "https is required")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return rejectBaseURL(baseURL, "host is required")
	}
	if _, ok := normalizeAllowedHosts(allowedHosts)[host]; !ok {
		return rejectBaseURL(baseURL, fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}
	return nil
}

// normalizeAllowedHosts reduces entries like "https://proxy:8443/" to bare
// lowercase hostnames.
func normalizeAllowedHosts(allowedHosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		for _, p := range []string{"http://", "https://"} {
			v = strings.TrimPrefix(v, p)
		}
		v, _, _ = strings.Cut(strings.Trim(v, "/"), "/")
		v, _, _ = strings.Cut(v, ":")
		if v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
