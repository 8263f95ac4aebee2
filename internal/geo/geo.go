// Package geo resolves client IPs to country codes. Lookup is an external
// collaborator of the ingestion pipeline and is strictly best-effort: an
// unresolvable IP yields "Unknown" and never fails or delays a submission
// beyond the resolver's own timeout.
package geo

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"
)

// UnknownCountry is returned whenever a lookup cannot be completed.
const UnknownCountry = "Unknown"

// Resolver maps an IP address to an ISO country code.
type Resolver interface {
	// Country returns the country for ip, or UnknownCountry. Implementations
	// must not return an error: geolocation is best-effort by contract.
	Country(ctx context.Context, ip string) string
}

// StaticResolver answers from a fixed table; IPs not in the table resolve
// to UnknownCountry. Useful for tests and for deployments without a lookup
// service.
type StaticResolver map[string]string

// Country implements Resolver.
func (r StaticResolver) Country(_ context.Context, ip string) string {
	if c, ok := r[ip]; ok && c != "" {
		return c
	}
	return UnknownCountry
}

// HTTPResolver queries an ip-api style JSON endpoint
// (GET <base>/<ip> -> {"countryCode": "US", ...}).
type HTTPResolver struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPResolver builds an HTTPResolver with its own bounded client.
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPResolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Country implements Resolver. Any transport, status, or decode problem
// degrades to UnknownCountry.
func (r *HTTPResolver) Country(ctx context.Context, ip string) string {
	if r.BaseURL == "" || net.ParseIP(ip) == nil {
		return UnknownCountry
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/"+ip, nil)
	if err != nil {
		return UnknownCountry
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return UnknownCountry
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return UnknownCountry
	}
	var out struct {
		CountryCode string `json:"countryCode"`
		Country     string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UnknownCountry
	}
	if out.CountryCode != "" {
		return out.CountryCode
	}
	if out.Country != "" {
		return out.Country
	}
	return UnknownCountry
}

// ClientIP extracts the originating client IP from a request, preferring
// the first X-Forwarded-For hop over the socket address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
