package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/amaumene/redman/internal/config"
	"github.com/amaumene/redman/internal/models"
)

const userAgent = "redman/1.0"

// envelope is the common {status, response} wrapper of every ajax.php reply
type envelope struct {
	Status   string          `json:"status"`
	Error    string          `json:"error"`
	Response json.RawMessage `json:"response"`
}

// Client wraps the tracker's ajax.php API
type Client struct {
	endpoint   *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewClient creates a new tracker client
func NewClient(cfg *config.Config, logger *zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tracker API key is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid tracker URL: %w", err)
	}

	return &Client{
		endpoint:   base.ResolveReference(&url.URL{Path: "ajax.php"}),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// buildURL returns the ajax.php URL for an action and its parameters
func (c *Client) buildURL(action string, id int64, extra url.Values) string {
	params := url.Values{}
	params.Set("action", action)
	params.Set("id", strconv.FormatInt(id, 10))
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	u := *c.endpoint
	u.RawQuery = params.Encode()
	return u.String()
}

// do performs an authenticated GET and returns the response when the HTTP status is 2xx.
// The caller owns the response body.
func (c *Client) do(ctx context.Context, action string, id int64, extra url.Values) (*http.Response, error) {
	finalURL := c.buildURL(action, id, extra)

	c.logger.Debug().
		Str("action", action).
		Int64("id", id).
		Str("url", finalURL).
		Msg("Performing tracker request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.APIError{Err: err}
	}

	c.logger.Debug().
		Str("action", action).
		Int("status_code", resp.StatusCode).
		Msg("Tracker response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &models.APIError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", body),
		}
	}

	return resp, nil
}

// getJSON performs a request, checks the envelope status and decodes the response payload
func (c *Client) getJSON(ctx context.Context, action string, id int64, extra url.Values, result interface{}) error {
	resp, err := c.do(ctx, action, id, extra)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &models.APIError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if env.Status != "success" {
		status := env.Status
		if status == "" {
			status = "missing status"
		}
		apiErr := &models.APIError{Status: status}
		if env.Error != "" {
			apiErr.Err = fmt.Errorf("%s", env.Error)
		}
		return apiErr
	}

	if err := json.Unmarshal(env.Response, result); err != nil {
		return &models.APIError{Err: fmt.Errorf("failed to decode %s payload: %w", action, err)}
	}

	return nil
}
