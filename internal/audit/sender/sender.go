// Package sender provides the default rule.HTTPClient the engine
// dispatches send actions through: a net/http client configured to
// negotiate HTTP/2 where the target offers it, translating between the
// engine's capture.Request/Response shapes and the wire.
package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/sinKettu/cruster-audit/internal/audit/bodycodec"
	"github.com/sinKettu/cruster-audit/internal/audit/capture"
)

// Client dispatches mutated requests produced by a change action. It
// implements rule.HTTPClient.
type Client struct {
	httpClient *http.Client
	baseURL    string // scheme://host[:port], prepended to Path since captured requests are origin-form
	logger     *zap.Logger
}

// Config controls how Client reaches the target the rule is probing.
type Config struct {
	// BaseURL is the scheme and authority every mutated request is sent
	// against; captured requests carry only an origin-form path.
	BaseURL string

	// InsecureSkipVerify disables TLS certificate validation, for
	// probing targets behind the proxy's own interception certificate.
	InsecureSkipVerify bool
}

// New builds a Client whose transport negotiates HTTP/2 via ALPN and
// falls back to HTTP/1.1 automatically.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configuring http2 transport: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    cfg.BaseURL,
		logger:     logger,
	}, nil
}

// Do sends req and returns the captured response, or an error if the
// dispatch itself failed (transport error or timeout). The caller
// records a failed dispatch as an empty response vector rather than
// propagating the error further.
func (c *Client) Do(ctx context.Context, req *capture.Request, timeout time.Duration) (*capture.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for _, h := range req.Headers.All() {
		httpReq.Header.Add(h.Name, h.Value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("send action dispatch failed", zap.String("path", req.Path), zap.Error(err))
		}
		return nil, fmt.Errorf("dispatching request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var headers capture.Headers
	for name, values := range resp.Header {
		for _, v := range values {
			headers.Add(name, v)
		}
	}

	return bodycodec.DecodeResponse(&capture.Response{
		Version: resp.Proto,
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    body,
	}), nil
}
