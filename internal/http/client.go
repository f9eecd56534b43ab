package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ChunkSize is the buffer size used when streaming downloads to disk.
const ChunkSize = 32 * 1024

// Config holds the fixed request settings shared by every request of a run.
type Config struct {
	// BaseURL is the storefront origin the session cookies belong to.
	BaseURL string

	// Headers attached to every request.
	UserAgent string
	Referer   string
	Accept    string

	// RequestTimeout bounds page and CSV requests end to end.
	RequestTimeout time.Duration

	// DialTimeout and ResponseHeaderTimeout bound file downloads, which have
	// no total limit because archives can be very large.
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
}

// TransportError reports a failed request: either a network failure
// (StatusCode 0) or a non-2xx response.
type TransportError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("GET %s: HTTP %s", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client is the authenticated session used for every storefront request.
//
// Client provides:
//   - A cookie jar holding the browser cookies for the storefront
//   - A fixed header set (User-Agent, Referer, Accept) on every request
//   - Timeout handling
//   - File download streamed to disk with progress tracking
//
// A Client is read-only after NewClient returns.
//
// Example usage:
//
//	client, err := NewClient(cfg, cookies)
//
//	// Fetch HTML content
//	html, err := client.GetString(ctx, "https://libro.fm/user/library/9781234567890")
//
//	// Download file with progress
//	n, err := client.DownloadFile(ctx, zipURL, "/path/to/book.zip", func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
type Client struct {
	httpClient     *http.Client
	header         http.Header
	requestTimeout time.Duration
}

// NewClient creates a Client whose cookie jar is seeded with cookies. Each
// cookie is stored under its own domain and path; cookies without a domain
// are scoped to cfg.BaseURL.
func NewClient(cfg Config, cookies []*http.Cookie) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	seedJar(jar, base, cookies)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout

	header := make(http.Header)
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}
	if cfg.Referer != "" {
		header.Set("Referer", cfg.Referer)
	}
	if cfg.Accept != "" {
		header.Set("Accept", cfg.Accept)
	}

	return &Client{
		httpClient:     &http.Client{Jar: jar, Transport: transport},
		header:         header,
		requestTimeout: cfg.RequestTimeout,
	}, nil
}

// seedJar stores each cookie under a URL built from its Domain and Path, so
// a cookie for www.libro.fm is not dropped when the base URL is libro.fm.
func seedJar(jar http.CookieJar, base *url.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		if c == nil {
			continue
		}
		u := base
		if host := strings.TrimPrefix(c.Domain, "."); host != "" {
			p := c.Path
			if p == "" {
				p = "/"
			}
			u = &url.URL{Scheme: base.Scheme, Host: host, Path: p}
		}
		jar.SetCookies(u, []*http.Cookie{c})
	}
}

// ProgressWriter wraps a writer to track download progress.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header), -1 if unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// do sends a GET request carrying the session headers and cookies, and
// converts network failures and non-2xx responses into *TransportError.
// The caller must close the body of the returned response.
func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}

// Get performs a GET request and returns the response body as bytes.
// The whole request, body included, is bounded by the configured
// RequestTimeout.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	return body, nil
}

// GetString performs a GET request and returns the response body as a string.
func (c *Client) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DownloadFile streams rawURL into destPath and returns the number of bytes
// written.
//
// The file is created, or truncated if it exists, only after a successful
// response arrives. Errors creating or writing the file are returned as they
// are; request and read failures are *TransportError. The body is copied in ChunkSize chunks so large archives
// never sit in memory. If the copy fails, the partial file is removed.
//
// onProgress may be nil.
func (c *Client) DownloadFile(ctx context.Context, rawURL, destPath string, onProgress func(written, total int64)) (int64, error) {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	file, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}

	disk := &diskWriter{w: file}
	var writer io.Writer = disk
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   disk,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	written, copyErr := io.CopyBuffer(writer, resp.Body, make([]byte, ChunkSize))
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(destPath)
		switch {
		case disk.err != nil:
			return written, disk.err
		case copyErr != nil:
			return written, &TransportError{URL: rawURL, Err: copyErr}
		}
		return written, closeErr
	}

	return written, nil
}

// diskWriter records the first error of the destination file, so a failed
// write is reported as a filesystem error and a failed read as a
// *TransportError.
type diskWriter struct {
	w   io.Writer
	err error
}

func (d *diskWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err != nil && d.err == nil {
		d.err = err
	}
	return n, err
}
