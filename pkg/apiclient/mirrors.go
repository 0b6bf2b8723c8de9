package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/marmos91/dittowatch/pkg/api/handlers"
	"github.com/marmos91/dittowatch/pkg/mirror"
)

// Health returns the liveness information of the server.
func (c *Client) Health(ctx context.Context) (*handlers.LivenessInfo, error) {
	var info handlers.LivenessInfo
	if err := c.get(ctx, "/health", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ready returns the readiness summary. When a mirror is failed the summary
// is returned together with an *APIError whose IsUnavailable is true.
func (c *Client) Ready(ctx context.Context) (*handlers.ReadinessSummary, error) {
	var summary handlers.ReadinessSummary
	err := c.get(ctx, "/health/ready", &summary, http.StatusServiceUnavailable)
	return &summary, err
}

// Mirrors lists every mirror, sorted by name.
func (c *Client) Mirrors(ctx context.Context) ([]mirror.Status, error) {
	var statuses []mirror.Status
	if err := c.get(ctx, "/api/v1/mirrors", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Mirror returns one mirror. An unknown name yields an error for which
// IsNotFound is true.
func (c *Client) Mirror(ctx context.Context, name string) (*mirror.Status, error) {
	var st mirror.Status
	if err := c.get(ctx, "/api/v1/mirrors/"+url.PathEscape(name), &st); err != nil {
		return nil, err
	}
	return &st, nil
}
