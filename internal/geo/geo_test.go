package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{"203.0.113.9": "NL"}

	if got := r.Country(context.Background(), "203.0.113.9"); got != "NL" {
		t.Fatalf("known IP: %q", got)
	}
	if got := r.Country(context.Background(), "192.0.2.1"); got != UnknownCountry {
		t.Fatalf("unknown IP: %q", got)
	}
}

func TestHTTPResolver_CountryCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/203.0.113.9" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"countryCode":"NL","country":"Netherlands"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second)
	if got := r.Country(context.Background(), "203.0.113.9"); got != "NL" {
		t.Fatalf("expected NL, got %q", got)
	}
}

func TestHTTPResolver_FallsBackToCountryName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"Netherlands"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second)
	if got := r.Country(context.Background(), "203.0.113.9"); got != "Netherlands" {
		t.Fatalf("expected country name fallback, got %q", got)
	}
}

func TestHTTPResolver_DegradesToUnknown(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-200": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		},
		"empty object": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		r := NewHTTPResolver(srv.URL, time.Second)
		got := r.Country(context.Background(), "203.0.113.9")
		srv.Close()
		if got != UnknownCountry {
			t.Fatalf("%s: expected Unknown, got %q", name, got)
		}
	}
}

func TestHTTPResolver_InvalidIPOrBase(t *testing.T) {
	r := NewHTTPResolver("", time.Second)
	if got := r.Country(context.Background(), "203.0.113.9"); got != UnknownCountry {
		t.Fatalf("empty base: %q", got)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("lookup should not fire for an invalid IP")
	}))
	defer srv.Close()
	r = NewHTTPResolver(srv.URL, time.Second)
	if got := r.Country(context.Background(), "not-an-ip"); got != UnknownCountry {
		t.Fatalf("invalid IP: %q", got)
	}
}

func TestHTTPResolver_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"countryCode":"NL"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, 50*time.Millisecond)
	if got := r.Country(context.Background(), "203.0.113.9"); got != UnknownCountry {
		t.Fatalf("expected Unknown on timeout, got %q", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	if got := ClientIP(req); got != "192.0.2.10" {
		t.Fatalf("socket address: %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("forwarded: %q", got)
	}
}
