package provider

import (
	"context"
	"errors"
	"time"

	"github.com/nestegg-labs/nestegg/models"
	"github.com/nestegg-labs/nestegg/provider/advisor"
)

// Kind selects an advisory service implementation.
type Kind string

const (
	HTTP Kind = "http"
)

// ErrNotConfigured is returned when no advisory endpoint is configured;
// callers are expected to run in local fallback mode.
var ErrNotConfigured = errors.New("advisory service not configured")

// Advisor is the boundary to the external advisory service. Both operations
// are idempotent request/response calls with no session affinity.
type Advisor interface {
	Discover(ctx context.Context, profile models.Profile, answered []string) (*models.DiscoveryResult, error)
	Analyze(ctx context.Context, profile models.Profile, simulationResults map[string]any) (*models.AnalysisResult, error)
}

// Options carries the connection settings for a remote advisor.
type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Retries  int
	Backoff  time.Duration
}

// NewAdvisor builds an advisor of the given kind. An empty endpoint yields
// ErrNotConfigured rather than a broken client.
func NewAdvisor(kind Kind, opts Options) (Advisor, error) {
	switch kind {
	case HTTP, "":
		if opts.Endpoint == "" {
			return nil, ErrNotConfigured
		}
		return advisor.New(opts.Endpoint, opts.APIKey, opts.Timeout, opts.Retries, opts.Backoff), nil
	default:
		return nil, errors.New("unsupported advisor kind: " + string(kind))
	}
}
