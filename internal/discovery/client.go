package discovery

import (
	"context"
	"log"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nestegg-labs/nestegg/internal/gaps"
	"github.com/nestegg-labs/nestegg/models"
	"github.com/nestegg-labs/nestegg/provider"
)

// SourceMode records where a snapshot's contents came from.
type SourceMode string

const (
	SourceRemote        SourceMode = "remote"
	SourceLocalFallback SourceMode = "local_fallback"
)

// Snapshot is the per-turn discovery state. Its shape is identical whether
// it was produced remotely or locally, so consumers are source-agnostic.
type Snapshot struct {
	OpenQuestions     []models.Question `json:"open_questions"`
	Insights          []string          `json:"insights"`
	Recommendations   []string          `json:"recommendations"`
	CompletenessScore float64           `json:"completeness_score"`
	Source            SourceMode        `json:"source"`
}

var fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nestegg_discovery_fetches_total",
	Help: "Discovery snapshot fetches by source mode.",
}, []string{"source"})

// Client produces discovery snapshots, preferring the remote advisory
// service and degrading to the local gap analyzer and completeness scorer
// when it is unreachable or returns a malformed payload.
type Client struct {
	advisor provider.Advisor // nil means always fall back locally
	logger  *log.Logger
}

func NewClient(advisor provider.Advisor, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[DISC] ", log.LstdFlags)
	}
	return &Client{advisor: advisor, logger: logger}
}

// Fetch returns the current snapshot. It never returns an error: any remote
// failure routes to the local fallback and is surfaced only via Source.
// Idempotent and side-effect-free aside from the network round-trip.
func (c *Client) Fetch(ctx context.Context, profile models.Profile, answered map[string]bool) Snapshot {
	if c.advisor != nil {
		res, err := c.advisor.Discover(ctx, profile, answeredList(answered))
		if err == nil {
			fetchesTotal.WithLabelValues(string(SourceRemote)).Inc()
			return Snapshot{
				OpenQuestions:     res.Questions,
				Insights:          res.Insights,
				Recommendations:   res.Recommendations,
				CompletenessScore: res.CompletenessScore,
				Source:            SourceRemote,
			}
		}
		c.logger.Printf("remote discovery failed, using local fallback: %v", err)
	}

	fetchesTotal.WithLabelValues(string(SourceLocalFallback)).Inc()
	return Snapshot{
		OpenQuestions:     gaps.OpenQuestions(profile, answered),
		Insights:          []string{},
		Recommendations:   []string{},
		CompletenessScore: gaps.Score(profile, answered),
		Source:            SourceLocalFallback,
	}
}

func answeredList(answered map[string]bool) []string {
	out := make([]string, 0, len(answered))
	for id := range answered {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
