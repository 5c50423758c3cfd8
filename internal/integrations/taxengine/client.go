package taxengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tax-interview-agent/internal/domain"
)

// computeRequest is the request shape for the engine's calculate endpoint.
// The engine reads the persisted facts by field id; nothing about its
// evaluation order or formulas leaks into this client.
type computeRequest struct {
	Facts domain.AnswerSet `json:"facts"`
}

// computeResponse is the minimal response shape returned by the engine.
type computeResponse struct {
	Refund    float64 `json:"refund"`
	TaxOwed   float64 `json:"tax_owed"`
	Carryover float64 `json:"carryover_to_next_year"`
}

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("taxengine: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused client for the external tax computation engine.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	cfgOnce  sync.Once
	apiToken string
	endpoint string
	cfgErr   error
}

type Option func(*Client)

// WithBaseURL pins the engine endpoint instead of resolving it from SSM.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new Client backed by the given paramstore Getter. The
// engine endpoint and API token are fetched from SSM on the first Compute
// call and reused for the lifetime of the process.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("taxengine: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("taxengine: parameter prefix must not be empty")
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveConfig fetches the endpoint and token from SSM on the first call
// and returns the cached result on every subsequent call within the same
// process lifetime.
func (c *Client) resolveConfig(ctx context.Context) (string, string, error) {
	c.cfgOnce.Do(func() {
		c.endpoint = c.baseURL
		if c.endpoint == "" {
			c.endpoint, c.cfgErr = c.getter.GetParameter(ctx, c.paramPrefix+"/tax-engine/endpoint")
			if c.cfgErr != nil {
				c.cfgErr = fmt.Errorf("taxengine: fetch endpoint from paramstore: %w", c.cfgErr)
				return
			}
			c.endpoint = strings.TrimSpace(c.endpoint)
		}
		if c.endpoint == "" {
			c.cfgErr = errors.New("taxengine: engine endpoint is empty")
			return
		}
		c.apiToken, c.cfgErr = fetchTokenFromParamStore(ctx, c.getter, c.paramPrefix+"/tax-engine/token")
	})
	return c.endpoint, c.apiToken, c.cfgErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func computeURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/calculate"
}

// Compute posts the merged fact set and returns the engine's derived
// figures.
func (c *Client) Compute(ctx context.Context, facts domain.AnswerSet) (domain.Computation, error) {
	if len(facts) == 0 {
		return domain.Computation{}, errors.New("taxengine: facts must not be empty")
	}

	endpoint, token, err := c.resolveConfig(ctx)
	if err != nil {
		return domain.Computation{}, err
	}

	body, err := json.Marshal(computeRequest{Facts: facts})
	if err != nil {
		return domain.Computation{}, fmt.Errorf("taxengine: marshal request: %w", err)
	}

	url := computeURL(endpoint)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return domain.Computation{}, fmt.Errorf("taxengine: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.Computation{}, fmt.Errorf("taxengine: request failed: %w", err)
	}

	var payload computeResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return domain.Computation{}, fmt.Errorf("taxengine: decode response: %w", decErr)
	}

	return domain.Computation{
		Refund:    payload.Refund,
		TaxOwed:   payload.TaxOwed,
		Carryover: payload.Carryover,
	}, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func fetchTokenFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("taxengine: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("taxengine: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("taxengine: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("taxengine: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("taxengine: API token is empty")
	}
	return tp.Token, nil
}
