package productapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/logger"
)

const (
	defaultTimeout = 8 * time.Second
	maxBodyBytes   = 2 << 20
	maxErrorBytes  = 512
)

// Options configures the product service client
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
	RatePerHour int // 0 disables client-side rate limiting
}

// Client fetches product records from the remote product service.
// A record is the JSON object returned by GET {base}/product/{barcode}.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new product service client
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "UnPackEat/1.0"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   userAgent,
		rateLimiter: newLimiter(opts.RatePerHour),
	}
}

// newLimiter converts a per-hour budget into a token bucket with a small burst
func newLimiter(perHour int) *rate.Limiter {
	if perHour <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(perHour)/3600), 10)
}

// SetDebug enables request/response debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Name implements domain.ProductSource
func (c *Client) Name() domain.Source {
	return domain.SourceRemoteService
}

// Lookup fetches the record for barcode. It never retries: a failed call is
// reported as domain.ErrRemoteUnavailable and the caller moves on.
func (c *Client) Lookup(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, domain.ErrRateLimited)
	}

	reqURL := fmt.Sprintf("%s/product/%s", c.baseURL, url.PathEscape(barcode))
	c.debugLog(ctx, "product service request", zap.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrRemoteUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	c.debugLog(ctx, "product service response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrProductNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := readLimitedBody(resp.Body, maxErrorBytes)
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrRemoteUnavailable, resp.StatusCode, string(body))
	}

	body, err := readLimitedBody(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrRemoteUnavailable, err)
	}

	if !domain.IsJSONObject(body) {
		return nil, fmt.Errorf("%w: failed to decode response: not a JSON object", domain.ErrRemoteUnavailable)
	}

	return &domain.ProductRecord{Barcode: barcode, Payload: body}, nil
}

func (c *Client) debugLog(ctx context.Context, msg string, fields ...zap.Field) {
	if c.debug {
		logger.Debug(ctx, msg, fields...)
	}
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
