// Package lsky is a small client for the Lsky Pro v2 image hosting API.
//
// Every failure below the API level (transport errors, empty bodies, bodies
// that are not JSON) is reported as ErrNoResponse. A well-formed rejection
// ({"status": false}) is returned as a Response with Status false.
package lsky

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lskyplus/bridge/internal/metrics"
)

// ErrNoResponse means the host did not produce a usable response.
var ErrNoResponse = errors.New("lsky: no usable response")

const (
	uploadPath = "api/v1/upload"
	imagesPath = "api/v1/images/"
)

// Client talks to one Lsky Pro instance. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Client whose requests give up after timeout.
// A zero timeout leaves requests bounded only by their context.
func NewClient(cfg Config, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return NewClientWithHTTPClient(cfg, &http.Client{Transport: transport, Timeout: timeout})
}

// NewClientWithHTTPClient creates a Client on top of an existing http.Client.
func NewClientWithHTTPClient(cfg Config, httpClient *http.Client) *Client {
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Upload sends the file at localPath as multipart field "file".
func (c *Client) Upload(ctx context.Context, localPath string) (*Response, error) {
	started := time.Now()

	body, contentType, err := c.uploadBody(localPath)
	if err != nil {
		metrics.ObserveLsky("upload", metrics.OutcomeError, started)
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	resp, err := c.Request(ctx, uploadPath, http.MethodPost, map[string]string{"Content-Type": contentType}, body)
	if err == nil && resp.Status && resp.Data == nil {
		err = fmt.Errorf("%w: upload succeeded without image data", ErrNoResponse)
		resp = nil
	}
	metrics.ObserveLsky("upload", outcome(resp, err), started)
	return resp, err
}

// Delete removes the image identified by key.
func (c *Client) Delete(ctx context.Context, key string) (*Response, error) {
	started := time.Now()
	resp, err := c.Request(ctx, imagesPath+url.PathEscape(key), http.MethodDelete, nil, nil)
	metrics.ObserveLsky("delete", outcome(resp, err), started)
	return resp, err
}

// Request performs an authenticated call against path, relative to the API
// base URL. headers are merged over the defaults. The status code is not
// inspected: the body is decoded whatever it is.
func (c *Client) Request(ctx context.Context, path, method string, headers map[string]string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrNoResponse, err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", c.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNoResponse, method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNoResponse, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty body (HTTP %d)", ErrNoResponse, res.StatusCode)
	}

	var out *Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode body (HTTP %d): %w", ErrNoResponse, res.StatusCode, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: null body (HTTP %d)", ErrNoResponse, res.StatusCode)
	}
	return out, nil
}

func (c *Client) uploadBody(localPath string) (io.Reader, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, "", fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy upload file: %w", err)
	}
	if c.cfg.HasStrategy() {
		if err := w.WriteField("strategy_id", strconv.Itoa(c.cfg.StrategyID)); err != nil {
			return nil, "", fmt.Errorf("write strategy_id: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func outcome(resp *Response, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case !resp.Status:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeOK
	}
}
