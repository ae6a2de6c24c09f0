// Package hub talks to the forecast hub's configuration API. The hub
// publishes per-project validation config (target groups with their valid
// locations and quantile levels) that deployments can use instead of the
// bundled reference tables.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/forecast-hub-etl/internal/observability"
)

// TargetGroup is one named group of targets sharing a location and quantile
// vocabulary.
type TargetGroup struct {
	Name      string    `json:"name"`
	Targets   []string  `json:"targets"`
	Locations []string  `json:"locations"`
	Quantiles []float64 `json:"quantiles"`
}

// ValidationConfig is a project's published validation configuration.
type ValidationConfig struct {
	TargetGroups []TargetGroup `json:"target_groups"`
}

// Validate checks structural requirements on a fetched config: every group
// needs a name, at least one target, and at least one location.
func (c ValidationConfig) Validate() error {
	if len(c.TargetGroups) == 0 {
		return fmt.Errorf("validation config has no target groups")
	}
	for i, g := range c.TargetGroups {
		if g.Name == "" {
			return fmt.Errorf("target group %d has no name", i)
		}
		if len(g.Targets) == 0 {
			return fmt.Errorf("target group %q has no targets", g.Name)
		}
		if len(g.Locations) == 0 {
			return fmt.Errorf("target group %q has no locations", g.Name)
		}
	}
	return nil
}

// AllTargets flattens the group structure into one target vocabulary.
func (c ValidationConfig) AllTargets() []string {
	var targets []string
	for _, g := range c.TargetGroups {
		targets = append(targets, g.Targets...)
	}
	return targets
}

// ConfigFetcher fetches a project's validation config.
type ConfigFetcher interface {
	FetchValidationConfig(ctx context.Context, project string) (ValidationConfig, error)
}

// Client implements ConfigFetcher against the hub's HTTP API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a hub configuration client.
func NewClient(baseURL, token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchValidationConfig retrieves and structurally validates the named
// project's validation config.
func (c *Client) FetchValidationConfig(ctx context.Context, project string) (ValidationConfig, error) {
	u := fmt.Sprintf("%s/projects/%s/validation-config", c.baseURL, url.PathEscape(project))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ValidationConfig{}, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.HubRequests.WithLabelValues("error").Inc()
		return ValidationConfig{}, fmt.Errorf("fetch validation config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.HubRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return ValidationConfig{}, fmt.Errorf("hub API error: status %d: %s", resp.StatusCode, body)
	}

	var config ValidationConfig
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		c.metrics.HubRequests.WithLabelValues("error").Inc()
		return ValidationConfig{}, fmt.Errorf("decode response: %w", err)
	}
	if err := config.Validate(); err != nil {
		if len(config.TargetGroups) == 0 {
			c.metrics.HubRequests.WithLabelValues("empty").Inc()
		} else {
			c.metrics.HubRequests.WithLabelValues("error").Inc()
		}
		return ValidationConfig{}, fmt.Errorf("invalid config for project %q: %w", project, err)
	}
	c.metrics.HubRequests.WithLabelValues("success").Inc()
	return config, nil
}
