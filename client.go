// Package googleai is a client for the Google Generative Language REST API.
//
// Response shapes are constrained with schema values derived ahead of time by
// the schemagen tool (see cmd/schemagen): annotate a type, generate its
// Schema method, and pass it to GenerativeModel.WithResponseSchemaOf.
package googleai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Client talks to the Generative Language API. It is safe for concurrent use.
type Client struct {
	endpoint  string
	apiKey    string
	tokens    oauth2.TokenSource
	hc        *http.Client
	userAgent string
	log       *slog.Logger
}

// clientConfig collects option values before the client is assembled.
type clientConfig struct {
	endpoint  string
	apiKey    string
	tokens    oauth2.TokenSource
	saJSON    []byte
	saFile    string
	hc        *http.Client
	userAgent string
	log       *slog.Logger
}

// Option configures NewClient.
type Option func(*clientConfig)

// WithAPIKey authenticates with an API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithServiceAccount authenticates with a service-account key file.
func WithServiceAccount(path string) Option {
	return func(c *clientConfig) { c.saFile = path }
}

// WithServiceAccountJSON authenticates with service-account key JSON.
func WithServiceAccountJSON(data []byte) Option {
	return func(c *clientConfig) { c.saJSON = data }
}

// WithTokenSource authenticates with an existing token source. The source is
// wrapped so tokens are reused until they expire.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *clientConfig) { c.tokens = oauth2.ReuseTokenSource(nil, ts) }
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(u string) Option {
	return func(c *clientConfig) { c.endpoint = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the HTTP client. The default client has no global
// timeout: streamed responses stay open as long as the model generates, so
// deadlines belong on the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.hc = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}

// WithLogger sets the logger for request-level debug logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.log = l }
}

// NewClient builds a client. Exactly one credential option is required: an
// API key, a service account, or a token source.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		endpoint:  defaultEndpoint,
		userAgent: "googleai-go",
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tokens := cfg.tokens
	var err error
	switch {
	case cfg.saJSON != nil:
		tokens, err = serviceAccountTokenSource(ctx, cfg.saJSON)
	case cfg.saFile != "":
		tokens, err = serviceAccountFileTokenSource(ctx, cfg.saFile)
	}
	if err != nil {
		return nil, err
	}
	if cfg.apiKey == "" && tokens == nil {
		return nil, ErrNoCredentials
	}

	hc := cfg.hc
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		endpoint:  cfg.endpoint,
		apiKey:    cfg.apiKey,
		tokens:    tokens,
		hc:        hc,
		userAgent: cfg.userAgent,
		log:       cfg.log,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+"/"+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	} else {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("googleai: obtaining access token: %w", err)
		}
		token.SetAuthHeader(req)
	}
	return req, nil
}

// do sends a request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	c.log.DebugContext(ctx, "api request", "method", method, "path", path)
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		err := apiError(resp)
		c.log.DebugContext(ctx, "api error", "path", path, "error", err)
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// stream sends a request and hands back the open response body for SSE
// consumption. The caller owns closing it.
func (c *Client) stream(ctx context.Context, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.log.DebugContext(ctx, "api stream", "path", path)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp, nil
}
