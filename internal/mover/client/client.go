// Package client implements the typed wrapper over the F5 Distributed
// Cloud (XC) configuration API: namespace/load-balancer listing, generic
// config object CRUD, the probe-delete pattern, and the certificate/DNS
// inspection helpers the preflight engine needs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	moverrors "github.com/f5devops/xc-ns-mover/internal/mover/errors"
	"github.com/f5devops/xc-ns-mover/internal/mover/resilience"
)

// ConfigDocument is a decoded XC API object: the metadata/spec envelope
// plus whatever else the API attaches (referring_objects, status, etc).
// It is kept as a generic tree because specs are schema-less per kind.
type ConfigDocument map[string]any

// Metadata returns the "metadata" sub-document, or an empty map if absent.
func (d ConfigDocument) Metadata() map[string]any {
	m, _ := d["metadata"].(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Spec returns the "spec" sub-document, or an empty map if absent.
func (d ConfigDocument) Spec() map[string]any {
	s, _ := d["spec"].(map[string]any)
	if s == nil {
		return map[string]any{}
	}
	return s
}

// Name returns metadata.name, or "" if absent.
func (d ConfigDocument) Name() string {
	s, _ := d.Metadata()["name"].(string)
	return s
}

// defaultDialTimeout and defaultResponseHeaderTimeout mirror the
// original client's (10s connect, 60s read) timeout pair.
const (
	defaultDialTimeout            = 10 * time.Second
	defaultResponseHeaderTimeout  = 60 * time.Second
	defaultOverallRequestDeadline = 70 * time.Second
)

// retryStatuses are the HTTP statuses the client retries automatically.
var retryStatuses = map[int]bool{502: true, 503: true, 504: true}

// Client is the XC API client. It is safe for concurrent use: the
// underlying http.Client is pooled and the capability cache is an
// internally-locked LRU.
type Client struct {
	baseURL string
	token   string

	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter

	// capability memoises one-shot 404 discoveries (disabled LB kinds,
	// missing list endpoints) so repeated calls skip straight to the
	// negative result instead of re-probing the network.
	capability *lru.Cache[string, bool]

	retryPolicy *resilience.RetryPolicy
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger overrides the client's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient overrides the underlying http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit bounds outbound request rate (requests per second, with a
// burst). Discovery BFS and certificate/DNS enumeration can issue dozens
// of sequential GETs; a conservative default keeps the client from
// hammering the tenant API.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst) }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy *resilience.RetryPolicy) Option {
	return func(c *Client) { c.retryPolicy = policy }
}

// New builds a Client against apiURL using apiToken for authentication.
func New(apiURL, apiToken string, opts ...Option) (*Client, error) {
	cache, err := lru.New[string, bool](256)
	if err != nil {
		return nil, fmt.Errorf("client: building capability cache: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(apiURL, "/"),
		token:   apiToken,
		httpClient: &http.Client{
			Timeout: defaultOverallRequestDeadline,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: defaultDialTimeout}).DialContext,
				ResponseHeaderTimeout: defaultResponseHeaderTimeout,
			},
		},
		logger:      slog.Default(),
		limiter:     rate.NewLimiter(rate.Limit(20), 5),
		capability:  cache,
		retryPolicy: defaultClientRetryPolicy(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func defaultClientRetryPolicy() *resilience.RetryPolicy {
	p := resilience.DefaultRetryPolicy()
	p.ErrorChecker = resilience.TransportErrorChecker{}
	p.Metrics = resilience.NewMetrics()
	p.OperationName = "xc_api"
	return p
}

// httpError carries a response status so callers can branch on
// capability/authorization semantics without re-parsing a message.
type httpError struct {
	Status int
	Body   string
	URL    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("xc api: unexpected status %d for %s: %s", e.Status, e.URL, truncate(e.Body, 500))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

func (c *Client) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, moverrors.New(moverrors.KindValidation, "encode request body", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, moverrors.New(moverrors.KindTransport, "build request", err)
	}
	req.Header.Set("Authorization", "APIToken "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// rawDo performs a single HTTP round trip with no retry, returning the
// raw *http.Response for callers that need to branch on status code
// (probe-delete's 409 handling).
func (c *Client) rawDo(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, moverrors.New(moverrors.KindTransport, "rate limiter wait", err)
		}
	}
	c.logger.Debug("xc api request", "method", req.Method, "url", req.URL.String())
	return c.httpClient.Do(req)
}

// do performs method/url/body with retry on transient statuses and
// connection errors, decoding the JSON response body into out (if
// non-nil). A non-2xx, non-retried response becomes an *httpError.
func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	_, err := resilience.WithRetryFunc(ctx, c.retryPolicy, func() (struct{}, error) {
		req, err := c.newRequest(ctx, method, url, body)
		if err != nil {
			return struct{}{}, err
		}
		resp, err := c.rawDo(req)
		if err != nil {
			return struct{}{}, moverrors.New(moverrors.KindTransport, method+" "+url, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, moverrors.New(moverrors.KindTransport, "read response body", err)
		}

		if resp.StatusCode >= 400 {
			herr := &httpError{Status: resp.StatusCode, Body: string(data), URL: url}
			if retryStatuses[resp.StatusCode] {
				return struct{}{}, moverrors.New(moverrors.KindTransport, method+" "+url, herr)
			}
			return struct{}{}, classifyHTTPError(herr)
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return struct{}{}, moverrors.New(moverrors.KindTransport, "decode response body", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func classifyHTTPError(herr *httpError) error {
	switch herr.Status {
	case http.StatusNotFound:
		return moverrors.New(moverrors.KindCapability, "", herr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return moverrors.New(moverrors.KindAuthorization, "", herr)
	case http.StatusConflict:
		return moverrors.New(moverrors.KindConflict, "", herr)
	default:
		return moverrors.New(moverrors.KindExecution, "", herr)
	}
}

// StatusOf extracts the HTTP status code from an error returned by this
// package, if any.
func StatusOf(err error) (int, bool) {
	var he *httpError
	if errors.As(err, &he) {
		return he.Status, true
	}
	return 0, false
}
