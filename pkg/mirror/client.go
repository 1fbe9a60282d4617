package mirror

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "instanon/pkg/errors"
	"instanon/pkg/logger"
	"instanon/pkg/ratelimit"
	"instanon/pkg/retry"
)

// Transport holds the TLS and timeout settings of the mirror client.
//
// InsecureSkipVerify turns off certificate verification for every request,
// including media hosts. Mirror sites commonly serve certificates that do not
// validate, so the default configuration enables it; set
// mirror.insecure_skip_verify to false (or pass --insecure=false) to verify.
type Transport struct {
	InsecureSkipVerify bool
	// Timeout bounds each request including the body read; zero means none
	Timeout time.Duration
}

// ClientOptions configures a Client
type ClientOptions struct {
	Transport Transport
	UserAgent string
	Headers   map[string]string
	Retry     *retry.Config
	// Limiter is optional; nil disables throttling
	Limiter ratelimit.Limiter
	Logger  logger.Logger
	// HTTPClient replaces the client built from Transport
	HTTPClient *http.Client
}

// Client performs GET requests against a mirror and its media hosts
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	retry      *retry.Config
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Page is a fetched HTML document
type Page struct {
	URL    string
	Status int
	Body   string
}

// NewClient creates a mirror client
func NewClient(opts ClientOptions) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(opts.Transport)
	}

	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	retryCfg := opts.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}

	return &Client{
		httpClient: httpClient,
		headers:    headers,
		retry:      retryCfg,
		limiter:    opts.Limiter,
		logger:     log,
	}
}

func newHTTPClient(t Transport) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if t.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // mirror certificates are not trusted
	}
	return &http.Client{
		Transport: transport,
		Timeout:   t.Timeout,
	}
}

// do performs a single GET with the configured headers
func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			errType := errs.ErrorTypeRateLimit
			if ctx.Err() != nil {
				errType = errs.ErrorTypeCancelled
			}
			return nil, errs.Wrap(errType, err, "waiting for rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		errType := errs.ErrorTypeNetwork
		if ctx.Err() != nil {
			errType = errs.ErrorTypeCancelled
		}
		return nil, errs.Wrap(errType, err, "GET %s", rawURL)
	}

	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, duration)
	return resp, nil
}

// transientStatus maps responses worth retrying to typed errors
func transientStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	case resp.StatusCode >= 500:
		return errs.New(errs.ErrorTypeServerError, resp.StatusCode, "server returned status %d", resp.StatusCode)
	default:
		return nil
	}
}

// checkResponseStatus rejects every non-2xx response
func checkResponseStatus(resp *http.Response) error {
	if err := transientStatus(resp); err != nil {
		return err
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	default:
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}
}

// GetPage fetches an HTML page. Client errors such as 404 are returned as a
// Page so the caller can inspect the body; 5xx and 429 are errors.
func (c *Client) GetPage(ctx context.Context, rawURL string) (*Page, error) {
	var page *Page
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.do(ctx, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := transientStatus(resp); err != nil {
			return err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
		}
		page = &Page{URL: rawURL, Status: resp.StatusCode, Body: string(body)}
		return nil
	}, c.retry)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetHTML fetches a page that must be served successfully
func (c *Client) GetHTML(ctx context.Context, rawURL string) (string, error) {
	page, err := c.GetPage(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if page.Status < 200 || page.Status >= 300 {
		if page.Status == http.StatusNotFound {
			return "", errs.New(errs.ErrorTypeNotFound, page.Status, "page not found: %s", rawURL)
		}
		return "", errs.New(errs.ErrorTypeUnknown, page.Status, "unexpected status code %d for %s", page.Status, rawURL)
	}
	return page.Body, nil
}

// Fetch opens a media URL for streaming. The caller closes the body.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.do(ctx, rawURL)
		if err != nil {
			return err
		}
		if err := checkResponseStatus(resp); err != nil {
			resp.Body.Close()
			return fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		body = resp.Body
		return nil
	}, c.retry)
	if err != nil {
		return nil, err
	}
	return body, nil
}
