package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nestegg-labs/nestegg/internal/httpx"
	"github.com/nestegg-labs/nestegg/models"
)

// Client talks to the remote advisory service over JSON HTTP. Any non-2xx
// status or schema mismatch surfaces as an error; the discovery layer maps
// every error to local fallback.
type Client struct {
	endpoint string
	apiKey   string
	http     *httpx.Client
}

func New(endpoint, apiKey string, timeout time.Duration, retries int, backoff time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     httpx.NewClient(timeout, retries, backoff),
	}
}

type discoveryRequest struct {
	Profile           models.Profile `json:"profile"`
	AnsweredQuestions []string       `json:"answered_questions"`
}

type analyzeRequest struct {
	Profile           models.Profile `json:"profile"`
	SimulationResults map[string]any `json:"simulation_results"`
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Discover requests the open-question set for a profile.
func (c *Client) Discover(ctx context.Context, profile models.Profile, answered []string) (*models.DiscoveryResult, error) {
	if answered == nil {
		answered = []string{}
	}
	var out models.DiscoveryResult
	req := discoveryRequest{Profile: profile, AnsweredQuestions: answered}
	if err := c.http.PostJSON(ctx, c.endpoint+"/discovery", c.headers(), req, &out); err != nil {
		return nil, err
	}
	if err := validateDiscovery(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze requests a plain-language reading of simulation results.
func (c *Client) Analyze(ctx context.Context, profile models.Profile, simulationResults map[string]any) (*models.AnalysisResult, error) {
	var out models.AnalysisResult
	req := analyzeRequest{Profile: profile, SimulationResults: simulationResults}
	if err := c.http.PostJSON(ctx, c.endpoint+"/analyze", c.headers(), req, &out); err != nil {
		return nil, err
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("malformed analyze response: empty summary")
	}
	return &out, nil
}

func validateDiscovery(res *models.DiscoveryResult) error {
	if res.CompletenessScore < 0 || res.CompletenessScore > 1 {
		return fmt.Errorf("malformed discovery response: completeness_score %v out of range", res.CompletenessScore)
	}
	for i, q := range res.Questions {
		if q.ID == "" {
			return fmt.Errorf("malformed discovery response: question %d has no id", i)
		}
		if q.Question == "" {
			return fmt.Errorf("malformed discovery response: question %q has no text", q.ID)
		}
	}
	if res.Insights == nil {
		res.Insights = []string{}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	return nil
}
