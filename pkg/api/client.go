// Package api talks to the training service's plain HTTP endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

const (
	StreamPath   = "api/stream/"
	ResultsPath  = "api/model-results/"
	DownloadPath = "api/download-model/"
)

// Client builds URLs against a base URL that always ends in a single slash.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) HTTPClient() *http.Client { return c.httpClient }

func (c *Client) StreamURL() string { return c.baseURL + StreamPath }

func (c *Client) ResultsURL() string { return c.baseURL + ResultsPath }

func (c *Client) DownloadURL(id int) string {
	return fmt.Sprintf("%s%s%d/", c.baseURL, DownloadPath, id)
}

// ModelResult is one entry of a finished training run as reported by the service.
type ModelResult struct {
	ID        any            `json:"id,omitempty"`
	DatasetID any            `json:"dataset_id,omitempty"`
	ModelName string         `json:"model_name,omitempty"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// CreatedTime parses CreatedAt, which services emit in assorted layouts.
func (r ModelResult) CreatedTime() (time.Time, error) {
	if r.CreatedAt == "" {
		return time.Time{}, errors.New("no created_at")
	}
	t, err := dateparse.ParseAny(r.CreatedAt)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse created_at %q", r.CreatedAt)
	}
	return t, nil
}

// FetchModelResults returns prior results. A non-empty list means training already finished.
func (c *Client) FetchModelResults(ctx context.Context) ([]ModelResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResultsURL(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create results request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch model results")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read model results")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("model results: server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return DecodeModelResults(body)
}

// DecodeModelResults accepts either a bare JSON array or an object wrapping it under "results".
func DecodeModelResults(body []byte) ([]ModelResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	if body[0] == '{' {
		var wrapped struct {
			Results []ModelResult `json:"results"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, errors.Wrap(err, "parse model results object")
		}
		return wrapped.Results, nil
	}

	var out []ModelResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "parse model results")
	}
	return out, nil
}
