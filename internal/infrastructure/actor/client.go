// Package actor calls external long-running scrape actors that return a
// dataset of raw items. The server treats them as a uniform interface; the
// concrete actor IDs are configuration.
package actor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/pkg/errors"
)

// DefaultTimeout bounds a single actor run.
const DefaultTimeout = 60 * time.Second

// RunLimits constrains a single actor run.
type RunLimits struct {
	MaxItems int
	Timeout  time.Duration
}

// Runner is the uniform actor-call contract tools depend on.
type Runner interface {
	Run(ctx context.Context, actorID string, input map[string]any, limits RunLimits) ([]map[string]any, error)
}

// Client runs actors synchronously and returns their dataset items.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.apify.com"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{},
		logger:  logger.With(zap.String("component", "actor")),
	}
}

var _ Runner = (*Client)(nil)

// Run starts the actor with the given input and blocks until its dataset is
// ready. Errors are classified: 404 → NOT_FOUND, other non-2xx →
// UPSTREAM_FAILURE, deadline → TIMEOUT, cancellation → CANCELLED.
func (c *Client) Run(ctx context.Context, actorID string, input map[string]any, limits RunLimits) ([]map[string]any, error) {
	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(input)
	if err != nil {
		return nil, errors.NewInternalErrorWithCause("marshal actor input", err)
	}

	q := url.Values{}
	q.Set("token", c.token)
	q.Set("format", "json")
	if limits.MaxItems > 0 {
		q.Set("limit", strconv.Itoa(limits.MaxItems))
	}
	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?%s",
		c.baseURL, url.PathEscape(actorID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalErrorWithCause("create actor request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Classify(ctx.Err())
		}
		return nil, errors.NewUpstreamError(fmt.Sprintf("actor %s unreachable", actorID), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFoundError(fmt.Sprintf("actor %s not found", actorID))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.NewUpstreamError(
			fmt.Sprintf("actor %s returned %d: %s", actorID, resp.StatusCode, string(snippet)), nil)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, errors.NewUpstreamError(fmt.Sprintf("actor %s returned malformed dataset", actorID), err)
	}

	c.logger.Info("Actor run completed",
		zap.String("actor", actorID),
		zap.Int("items", len(items)),
		zap.Duration("duration", time.Since(start)),
	)
	return items, nil
}
