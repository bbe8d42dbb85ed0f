package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benmeehan/fbx-agent/pkg/file"
)

const maxResponseSize = 4 << 20

// Requester is the surface every appliance call goes through.
type Requester interface {
	Get(ctx context.Context, path string, result any) error
	Post(ctx context.Context, path string, body any, result any) error
}

// Config describes a transport bound to one base URL.
type Config struct {
	BaseURL string
	// CACertificate is the path of the PEM certificate used as the only root of trust.
	// Required for https base URLs.
	CACertificate string
	// ProxyURL optionally routes every request through an HTTP proxy.
	ProxyURL  string
	Timeout   time.Duration
	UserAgent string
}

// Client is an HTTP client bound to a base URL. A Client value is immutable once
// built; WithHeader derives a new one that shares the underlying connection pool.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	headers    http.Header
}

var _ Requester = (*Client)(nil)

// New builds a Client for cfg. For https base URLs the root pool holds only the
// certificate read from cfg.CACertificate; the OS trust store is never consulted.
func New(cfg Config, fileOps file.FileOperations) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	httpTransport := http.DefaultTransport.(*http.Transport).Clone()
	httpTransport.Proxy = nil

	if base.Scheme == "https" {
		if cfg.CACertificate == "" {
			return nil, errors.New("a pinned CA certificate is required for https")
		}
		pool, err := loadCertPool(cfg.CACertificate, fileOps)
		if err != nil {
			return nil, err
		}
		httpTransport.TLSClientConfig = &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}
	}

	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.ProxyURL, err)
		}
		httpTransport.Proxy = http.ProxyURL(proxy)
	}

	headers := make(http.Header)
	headers.Set("Accept", "application/json")
	if cfg.UserAgent != "" {
		headers.Set("User-Agent", cfg.UserAgent)
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: httpTransport,
			Timeout:   cfg.Timeout,
		},
		headers: headers,
	}, nil
}

// loadCertPool reads a PEM bundle into a fresh pool.
func loadCertPool(path string, fileOps file.FileOperations) (*x509.CertPool, error) {
	pem, err := fileOps.ReadFileRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to append CA certificate from %s", path)
	}
	return pool, nil
}

// BaseURL returns the base every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Header returns the value of a default header.
func (c *Client) Header(key string) string {
	return c.headers.Get(key)
}

// WithHeader returns a copy of c that sends key: value on every request.
func (c *Client) WithHeader(key, value string) *Client {
	headers := c.headers.Clone()
	headers.Set(key, value)
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		headers:    headers,
	}
}

// Get issues a GET and unwraps the appliance envelope into result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.call(ctx, http.MethodGet, path, nil, result, true)
}

// Post issues a POST with a JSON body and unwraps the appliance envelope into result.
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	return c.call(ctx, http.MethodPost, path, body, result, true)
}

// GetJSON issues a GET and decodes the bare JSON body (no envelope) into result.
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.call(ctx, http.MethodGet, path, nil, result, false)
}

// resolve joins path onto the base URL. A leading slash is relative to the base
// path, not to the host root.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) call(ctx context.Context, method, path string, body any, result any, enveloped bool) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to serialize request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range c.headers {
		req.Header[key] = values
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if !enveloped {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return newHTTPError(resp.StatusCode, raw)
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, newHTTPError(resp.StatusCode, raw))
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, newHTTPError(resp.StatusCode, raw))
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Code: env.ErrorCode, Message: env.Msg}
	}
	if result == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("%s %s: failed to decode result: %w", method, path, err)
	}
	return nil
}
