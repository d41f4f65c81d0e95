// Package pinecone is a minimal REST client for the Pinecone vector
// service: index provisioning on the control plane and similarity queries
// on the data plane.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrIndexUnavailable = errors.New("pinecone index unavailable")
)

const (
	defaultControlURL    = "https://api.pinecone.io"
	maxResponseSizeBytes = 4 << 20
)

type Config struct {
	APIKey    string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Index     string        `envconfig:"INDEX" split_words:"true" default:"products-index"`
	Dimension int           `envconfig:"DIMENSION" split_words:"true" default:"1536"`
	Metric    string        `envconfig:"METRIC" split_words:"true" default:"cosine"`
	Cloud     string        `envconfig:"CLOUD" split_words:"true" default:"aws"`
	Region    string        `envconfig:"REGION" split_words:"true" default:"us-east-1"`
	Namespace string        `envconfig:"NAMESPACE" split_words:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`

	// Host is the index data-plane host. Left empty it is resolved from
	// the control plane by EnsureIndex.
	Host string `envconfig:"HOST" split_words:"true"`

	// ControlURL overrides the control plane endpoint, for tests.
	ControlURL string `envconfig:"CONTROL_URL" split_words:"true"`
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithNamespace(namespace string) Option {
	return func(c *Client) {
		c.namespace = strings.TrimSpace(namespace)
	}
}

// Client talks to one Pinecone index.
type Client struct {
	apiKey     string
	index      string
	dimension  int
	metric     string
	cloud      string
	region     string
	namespace  string
	controlURL string
	host       string
	httpClient *http.Client
}

// Match is one ranked similarity hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("pinecone api key is required")
	}
	index := strings.TrimSpace(cfg.Index)
	if index == "" {
		return nil, errors.New("pinecone index name is required")
	}

	controlURL := strings.TrimRight(strings.TrimSpace(cfg.ControlURL), "/")
	if controlURL == "" {
		controlURL = defaultControlURL
	}
	if _, err := url.ParseRequestURI(controlURL); err != nil {
		return nil, fmt.Errorf("invalid pinecone control url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		apiKey:     apiKey,
		index:      index,
		dimension:  cfg.Dimension,
		metric:     strings.TrimSpace(cfg.Metric),
		cloud:      strings.TrimSpace(cfg.Cloud),
		region:     strings.TrimSpace(cfg.Region),
		namespace:  strings.TrimSpace(cfg.Namespace),
		controlURL: controlURL,
		host:       normalizeHost(cfg.Host),
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// EnsureIndex creates the serverless index when it does not exist yet and
// resolves the data-plane host. An index that already exists is not an
// error.
func (c *Client) EnsureIndex(ctx context.Context) error {
	body := map[string]any{
		"name":      c.index,
		"dimension": c.dimension,
		"metric":    c.metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  c.cloud,
				"region": c.region,
			},
		},
	}

	status, _, err := c.do(ctx, http.MethodPost, c.controlURL+"/indexes", body)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusCreated || status == http.StatusOK:
	case status == http.StatusConflict:
		// Index already exists.
	default:
		return fmt.Errorf("%w: create index status=%d", ErrIndexUnavailable, status)
	}

	return c.resolveHost(ctx)
}

func (c *Client) resolveHost(ctx context.Context) error {
	if c.host != "" {
		return nil
	}

	status, raw, err := c.do(ctx, http.MethodGet, c.controlURL+"/indexes/"+url.PathEscape(c.index), nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: describe index status=%d", ErrIndexUnavailable, status)
	}

	var described struct {
		Host string `json:"host"`
	}
	if err := json.Unmarshal(raw, &described); err != nil {
		return fmt.Errorf("decode describe index response: %w", err)
	}
	if strings.TrimSpace(described.Host) == "" {
		return fmt.Errorf("%w: describe index returned no host", ErrIndexUnavailable)
	}

	c.host = normalizeHost(described.Host)
	return nil
}

// Query returns the topK nearest records for vector, ranked by the
// service. Metadata is included, values are not.
func (c *Client) Query(ctx context.Context, vector []float64, topK int) ([]Match, error) {
	if c.host == "" {
		return nil, fmt.Errorf("%w: data-plane host not resolved, call EnsureIndex first", ErrIndexUnavailable)
	}
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeValues":   false,
		"includeMetadata": true,
		"namespace":       c.namespace,
	}

	status, raw, err := c.do(ctx, http.MethodPost, c.host+"/query", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: query status=%d body=%s", ErrIndexUnavailable, status, string(raw))
	}

	var parsed struct {
		Matches []Match `json:"matches"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return parsed.Matches, nil
}

func (c *Client) do(ctx context.Context, method, target string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal pinecone request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build pinecone request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute pinecone request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read pinecone response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// normalizeHost accepts either a bare host or a full URL and returns a
// https URL without a trailing slash.
func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}
