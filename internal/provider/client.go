package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/josh-kwaku/payment-aggregator/internal/config"
	"github.com/josh-kwaku/payment-aggregator/internal/domain"
	"github.com/josh-kwaku/payment-aggregator/internal/logging"
)

const defaultTimeout = 30 * time.Second

type Option func(*options)

type options struct {
	httpClient *http.Client
	now        func() time.Time
}

// WithHTTPClient replaces the instrumented client built from the config.
// The config timeout is still applied when the client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type httpClient struct {
	provider domain.ProviderKey
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	now      func() time.Time
}

func newHTTPClient(key domain.ProviderKey, cfg config.ProviderConfig, defaultURL string, timeout time.Duration, opts []Option) *httpClient {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	if o.httpClient != nil {
		shared := *o.httpClient
		client = &shared
	}
	if client.Timeout == 0 {
		client.Timeout = timeout
	}

	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = defaultURL
	}

	limit := rate.Inf
	burst := 1
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
		burst = max(1, int(cfg.RateLimitRPS))
	}

	return &httpClient{
		provider: key,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		now:      o.now,
	}
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	headers map[string]string
}

// do sends req and decodes a 2xx JSON response into out. Errors are
// *domain.ProviderError classified as TIMEOUT, INIT_FAILED or
// INVALID_RESPONSE.
func (c *httpClient) do(ctx context.Context, req request, out any) error {
	log := logging.FromContext(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return c.transportError(ctx, "rate limiter", err)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return domain.NewProviderError(c.provider, domain.KindInitFailed, "build request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	log.Info("provider request sent", "provider", c.provider, "method", req.method, "path", req.path)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return c.transportError(ctx, "send", err)
	}
	defer resp.Body.Close()

	log.Info("provider response received",
		"provider", c.provider,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewProviderError(c.provider, domain.KindInitFailed,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return c.transportError(ctx, "read body", err)
		}
		return domain.NewProviderError(c.provider, domain.KindInvalidResponse, "decode response", err)
	}
	return nil
}

func (c *httpClient) ping(ctx context.Context, path string) error {
	if path == "" {
		return ErrProbeUnsupported
	}
	return c.do(ctx, request{method: http.MethodGet, path: path}, nil)
}

func (c *httpClient) transportError(ctx context.Context, op string, err error) error {
	if isTimeout(ctx, err) {
		return domain.NewProviderError(c.provider, domain.KindTimeout, op, err)
	}
	return domain.NewProviderError(c.provider, domain.KindInitFailed, op, err)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func marshalBody(key domain.ProviderKey, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, domain.NewProviderError(key, domain.KindInitFailed, "marshal request", err)
	}
	return b, nil
}
