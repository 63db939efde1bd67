// Package profile resolves which fixed endpoint set and latency budgets apply
// to a run.
//
// A base URL pointing at the public httpbin.org test double selects the
// HTTPBin profile used in automated pipelines; anything else is treated as the
// local backend.
package profile

import (
	"strings"
	"time"
)

// DefaultBaseURL is used when no API_URL is configured.
const DefaultBaseURL = "http://localhost:8080"

const httpBinHost = "httpbin.org"

// Kind is the closed set of known target profiles.
type Kind int

const (
	// KindBackend targets the local backend service.
	KindBackend Kind = iota
	// KindHTTPBin targets the public httpbin.org test double.
	KindHTTPBin
)

func (k Kind) String() string {
	switch k {
	case KindBackend:
		return "backend"
	case KindHTTPBin:
		return "httpbin"
	default:
		return "unknown"
	}
}

// Endpoint is one probe path of a profile.
type Endpoint struct {
	Name string
	Path string
}

var (
	httpBinEndpoints = [2]Endpoint{
		{Name: "status", Path: "/status/200"},
		{Name: "json", Path: "/json"},
	}
	backendEndpoints = [2]Endpoint{
		{Name: "health", Path: "/health"},
		{Name: "hello", Path: "/api/hello"},
	}
)

// Profile is resolved once per run and never mutated.
type Profile struct {
	Kind    Kind
	BaseURL string
}

// Resolve classifies baseURL. An empty baseURL resolves to the backend at
// DefaultBaseURL.
func Resolve(baseURL string) Profile {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	kind := KindBackend
	if strings.Contains(baseURL, httpBinHost) {
		kind = KindHTTPBin
	}
	return Profile{Kind: kind, BaseURL: baseURL}
}

// Endpoints returns the two endpoints the profile calls, in request order.
func (p Profile) Endpoints() [2]Endpoint {
	switch p.Kind {
	case KindHTTPBin:
		return httpBinEndpoints
	default:
		return backendEndpoints
	}
}

// IsLocal reports whether the target runs on the developer machine.
func (p Profile) IsLocal() bool {
	return strings.Contains(p.BaseURL, "localhost") || strings.Contains(p.BaseURL, "127.0.0.1")
}

// Budgets are the per-endpoint latency limits checked on every response.
type Budgets struct {
	A time.Duration
	B time.Duration
}

// Budgets returns the latency budgets of p under mode m.
func (p Profile) Budgets(m Mode) Budgets {
	strict := m == ModeCI
	switch p.Kind {
	case KindHTTPBin:
		if strict {
			return Budgets{A: 5000 * time.Millisecond, B: 5000 * time.Millisecond}
		}
		return Budgets{A: 2000 * time.Millisecond, B: 2000 * time.Millisecond}
	default:
		if strict {
			return Budgets{A: 1000 * time.Millisecond, B: 1000 * time.Millisecond}
		}
		return Budgets{A: 200 * time.Millisecond, B: 300 * time.Millisecond}
	}
}
