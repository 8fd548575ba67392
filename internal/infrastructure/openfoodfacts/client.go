package openfoodfacts

import (
	"context"
	"encoding/json"
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
	// DefaultBaseURL is the public OpenFoodFacts API
	DefaultBaseURL = "https://world.openfoodfacts.net"

	defaultTimeout = 6 * time.Second
	maxBodyBytes   = 4 << 20
	maxErrorBytes  = 512
)

// Analyzer turns normalized product facts into the stored analysis payload
type Analyzer interface {
	Analyze(facts *domain.ProductFacts) *domain.ProductAnalysis
}

// Options configures the OpenFoodFacts client
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
	RatePerHour int // 0 disables client-side rate limiting
}

// Client is a remote product source backed by the OpenFoodFacts API.
// Products are normalized and analyzed before being returned as records.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
	analyzer    Analyzer
	debug       bool
}

type productResponse struct {
	Status        int             `json:"status"`
	StatusVerbose string          `json:"status_verbose"`
	Product       json.RawMessage `json:"product"`
}

// NewClient creates a new OpenFoodFacts client
func NewClient(opts Options, analyzer Analyzer) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "UnPackEat/1.0"
	}

	var limiter *rate.Limiter
	if opts.RatePerHour > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerHour)/3600), 10)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		rateLimiter: limiter,
		analyzer:    analyzer,
	}
}

// SetDebug enables request/response debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Name implements domain.ProductSource
func (c *Client) Name() domain.Source {
	return domain.SourceRemoteService
}

// Lookup fetches, normalizes and analyzes a product
func (c *Client) Lookup(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	product, err := c.FetchProduct(ctx, barcode)
	if err != nil {
		return nil, err
	}

	analysis := c.analyzer.Analyze(MapToFacts(product, barcode))

	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode analysis: %v", domain.ErrRemoteUnavailable, err)
	}

	return &domain.ProductRecord{Barcode: barcode, Payload: payload}, nil
}

// FetchProduct returns the raw OpenFoodFacts product for barcode
func (c *Client) FetchProduct(ctx context.Context, barcode string) (*Product, error) {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, domain.ErrRateLimited)
	}

	reqURL := fmt.Sprintf("%s/api/v2/product/%s", c.baseURL, url.PathEscape(barcode))
	c.debugLog(ctx, "openfoodfacts request", zap.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrRemoteUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to reach OpenFoodFacts: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	c.debugLog(ctx, "openfoodfacts response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrRemoteUnavailable, resp.StatusCode, string(body))
	}

	var envelope productResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", domain.ErrRemoteUnavailable, err)
	}

	if envelope.Status == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, envelope.StatusVerbose)
	}

	if !domain.IsJSONObject(envelope.Product) {
		return nil, fmt.Errorf("%w: malformed product response", domain.ErrRemoteUnavailable)
	}

	var product Product
	if err := json.Unmarshal(envelope.Product, &product); err != nil {
		return nil, fmt.Errorf("%w: malformed product response: %v", domain.ErrRemoteUnavailable, err)
	}

	return &product, nil
}

func (c *Client) debugLog(ctx context.Context, msg string, fields ...zap.Field) {
	if c.debug {
		logger.Debug(ctx, msg, fields...)
	}
}
