// Package logstf fetches game logs from the logs.tf api and archives the competitive ones.
package logstf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leighmacdonald/rglstats/pkg/log"
	"go.uber.org/ratelimit"
)

var (
	ErrRequest  = errors.New("failed to query logs.tf")
	ErrStatus   = errors.New("unexpected logs.tf response status")
	ErrRead     = errors.New("failed to read logs.tf body")
	ErrDecode   = errors.New("failed to decode logs.tf body")
	ErrNotFound = errors.New("log not found")
)

const DefaultBaseURL = "https://logs.tf"

// Summary is one entry of the log listing.
type Summary struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Map     string `json:"map"`
	Date    int64  `json:"date"`
	Views   int    `json:"views"`
	Players int    `json:"players"`
}

func (s Summary) Time() time.Time {
	return time.Unix(s.Date, 0)
}

// ListResult is the response of the /api/v1/log endpoint.
type ListResult struct {
	Success    bool `json:"success"`
	Results    int  `json:"results"`
	Total      int  `json:"total"`
	Parameters struct {
		Player   string `json:"player"`
		Uploader any    `json:"uploader"`
		Title    any    `json:"title"`
		Map      any    `json:"map"`
		Limit    int    `json:"limit"`
		Offset   int    `json:"offset"`
	} `json:"parameters"`
	Logs []Summary `json:"logs"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    ratelimit.Limiter
}

// NewClient creates a client issuing at most one request per interval. A zero interval disables
// pacing.
func NewClient(baseURL string, interval time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limiter := ratelimit.NewUnlimited()
	if interval > 0 {
		limiter = ratelimit.New(1, ratelimit.Per(interval))
	}

	return &Client{
		httpClient: &http.Client{Timeout: time.Second * 15},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    limiter,
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	c.limiter.Take()

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if errReq != nil {
		return nil, errors.Join(errReq, ErrRequest)
	}

	resp, errResp := c.httpClient.Do(req)
	if errResp != nil {
		return nil, errors.Join(errResp, ErrRequest)
	}

	defer log.Closer(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	body, errBody := io.ReadAll(resp.Body)
	if errBody != nil {
		return nil, errors.Join(errBody, ErrRead)
	}

	return body, nil
}

// List returns the most recently uploaded logs.
// https://logs.tf/api/v1/log?title=X&uploader=Y&player=Z&limit=N&offset=N
func (c *Client) List(ctx context.Context, limit int) (ListResult, error) {
	body, errGet := c.get(ctx, fmt.Sprintf("/api/v1/log?limit=%d", limit))
	if errGet != nil {
		return ListResult{}, errGet
	}

	var result ListResult
	if errUnmarshal := json.Unmarshal(body, &result); errUnmarshal != nil {
		return ListResult{}, errors.Join(errUnmarshal, ErrDecode)
	}

	return result, nil
}

// Fetch downloads the full log. The chat is dropped and the log id, which logs.tf does not
// include in the body, is added.
func (c *Client) Fetch(ctx context.Context, logID int64) ([]byte, error) {
	body, errGet := c.get(ctx, fmt.Sprintf("/json/%d", logID))
	if errGet != nil {
		return nil, errGet
	}

	var fields map[string]json.RawMessage
	if errUnmarshal := json.Unmarshal(body, &fields); errUnmarshal != nil {
		return nil, errors.Join(errUnmarshal, ErrDecode)
	}

	delete(fields, "chat")

	encodedID, errID := json.Marshal(logID)
	if errID != nil {
		return nil, errors.Join(errID, ErrDecode)
	}

	fields["id"] = encodedID

	raw, errMarshal := json.Marshal(fields)
	if errMarshal != nil {
		return nil, errors.Join(errMarshal, ErrDecode)
	}

	return raw, nil
}
