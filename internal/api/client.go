// Package api provides the HTTP client for the content-sources service
package api

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

	"github.com/sirupsen/logrus"

	"github.com/ralt/repoadd/internal/models"
)

const (
	// DefaultBaseURL is the content-sources API root
	DefaultBaseURL = "https://console.redhat.com/api/content-sources/v1"

	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "repoadd/1.0"
)

// Client talks to the content-sources service
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewClient creates a client for baseURL. If timeout is 0, uses DefaultTimeout.
// An empty token sends unauthenticated requests.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https: %s", baseURL)
	}

	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}, nil
}

// FetchGPGKey asks the service to download the key published at keyURL
func (c *Client) FetchGPGKey(ctx context.Context, keyURL string) (string, error) {
	var resp models.FetchGPGKeyResponse
	if err := c.do(ctx, http.MethodPost, "/repository_parameters/external_gpg_key/", models.FetchGPGKeyRequest{URL: keyURL}, &resp); err != nil {
		return "", err
	}
	return resp.GPGKey, nil
}

// ValidateContentList validates rows in one call; the result is index aligned with rows
func (c *Client) ValidateContentList(ctx context.Context, rows []models.ValidationRequest) ([]models.ValidationResult, error) {
	var results []models.ValidationResult
	if err := c.do(ctx, http.MethodPost, "/repository_parameters/validate/", rows, &results); err != nil {
		return nil, err
	}
	if len(results) != len(rows) {
		return nil, fmt.Errorf("validation returned %d results for %d repositories", len(results), len(rows))
	}
	return results, nil
}

// CreateRepository creates a single repository
func (c *Client) CreateRepository(ctx context.Context, repo models.RepositoryRequest) (*models.Repository, error) {
	var created models.Repository
	if err := c.do(ctx, http.MethodPost, "/repositories/", repo, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListRepositories returns one page of repositories
func (c *Client) ListRepositories(ctx context.Context, limit, offset int) (*models.RepositoryCollection, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	path := "/repositories/"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page models.RepositoryCollection
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRepositoryParams returns the known architectures and versions
func (c *Client) GetRepositoryParams(ctx context.Context) (*models.RepositoryParams, error) {
	var params models.RepositoryParams
	if err := c.do(ctx, http.MethodGet, "/repository_parameters/", nil, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// do sends in as JSON (when non-nil) and decodes the response into out
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logrus.Debugf("%s %s", method, endpoint)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Use LimitReader to prevent reading more than MaxResponseSize
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewHTTPError(resp.StatusCode, endpoint, errorMessage(data, resp.Status))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}
